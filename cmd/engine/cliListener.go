package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/eiannone/keyboard"
	"trustmesh/messaging/eventconductor"
	"trustmesh/state/signals"
)

// cliListener is a cheap and nasty way to look inside a running engine. It listens for keypresses and executes commands.
func cliListener(conductor *eventconductor.Conductor, store *signals.Store, quit func()) {
	fmt.Println("VIEW CURRENT STATE:\nd: debug info\nD: definitions\np: pending instances\ns: signals\nx: clear cache\nq: to quit")
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			fmt.Println(err)
			return
		}
		str := string(r)
		switch str {
		default:
			if k == keyboard.KeyEnter {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to any command. See main.cliListener for more details.")
		case "d":
			spew.Dump(conductor.DebugInfo())
		case "D":
			for _, d := range conductor.GetAllDefinitions() {
				fmt.Printf("\nID: %s Slug: %s Name: %s\nHRL: %s TS: %s\n", d.ID, d.Slug, d.Name, d.HRL, d.Timestamp)
			}
		case "p":
			for _, p := range conductor.Pending() {
				fmt.Printf("\nWaiting for: %s Owner: %s HRL: %s\n", p.Reference(), p.Owner, p.HRL)
			}
		case "s":
			for _, s := range store.Events() {
				fmt.Printf("\n%s %s -> %s (%s)\n", s.ID, s.Actors.From, s.Actors.To, s.Payload.DefinitionID)
			}
		case "x":
			conductor.ClearCache()
			fmt.Println("cache cleared")
		case "q":
			quit()
			return
		}
	}
}
