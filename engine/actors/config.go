package actors

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"trustmesh/engine/library"
)

var ErrMissingConfig = errors.New("missing required config")

// Required settings, validated by Validate before the engine starts.
var required = []string{"mirrorRest", "mirrorWs", "recognitionTopic"}

// InitConfig sets up our Viper config object
func InitConfig(config *viper.Viper) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	config.SetDefault("rootDir", homeDir+"/trustmesh/")
	config.SetEnvPrefix("trustmesh")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	config.SetConfigType("yaml")
	config.SetConfigFile(config.GetString("rootDir") + "config.yaml")
	err = config.ReadInConfig()
	if err != nil {
		library.LogCLI(err.Error(), library.LevelInfo)
	}
	config.SetDefault("mirrorRest", "https://testnet.mirrornode.hedera.com")
	config.SetDefault("mirrorWs", "wss://testnet.mirrornode.hedera.com")
	config.SetDefault("mirrorWsPort", "5600")
	config.SetDefault("recognitionTopic", "")
	config.SetDefault("backfillLimit", 200)
	config.SetDefault("backfillOrder", "asc")
	config.SetDefault("maxPending", 10000)
	config.SetDefault("logLevel", library.LevelInfo)
	config.SetDefault("relays", []string{})
	config.SetDefault("privateKey", "")
	// Create our working directory and config file if not exist
	if err := initRootDir(config); err != nil {
		return err
	}
	return nil
}

// WriteConfig persists the current settings so the next run starts from them.
func WriteConfig(config *viper.Viper) error {
	f, err := os.OpenFile(config.ConfigFileUsed(), os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	f.Close()
	return config.WriteConfig()
}

// Validate checks that every required setting is non-empty.
func Validate(config *viper.Viper) error {
	var missing []string
	for _, k := range required {
		if strings.TrimSpace(config.GetString(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	order := config.GetString("backfillOrder")
	if order != "asc" && order != "desc" {
		return fmt.Errorf("backfillOrder must be asc or desc, got %q", order)
	}
	return nil
}

func initRootDir(conf *viper.Viper) error {
	_, err := os.Stat(conf.GetString("rootDir"))
	if os.IsNotExist(err) {
		return os.MkdirAll(conf.GetString("rootDir"), 0755)
	}
	return nil
}

var conf *viper.Viper

func MakeOrGetConfig() *viper.Viper {
	return conf
}

func SetConfig(config *viper.Viper) {
	conf = config
}
