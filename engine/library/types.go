package library

type Wallet struct {
	PrivateKey string
	SeedWords  string
	Account    Account
}

type Account = string

// TopicID is a ledger topic in shard.realm.num form, e.g. 0.0.4610
type TopicID = string

// HRL is the stable handle of a topic message, hcs://11/<topic>/<sequence>.
type HRL = string
