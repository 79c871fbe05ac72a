package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/uni-muenster/elabftw-usersync/usersync"
)

func main() {
	whitelistFlag := flag.String("whitelist", "", "path to the whitelist CSV, overrides WHITELIST_FILENAME")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}).
		With().Timestamp().Logger()

	_ = godotenv.Load()
	if *whitelistFlag != "" {
		os.Setenv("WHITELIST_FILENAME", *whitelistFlag)
	}

	log.Info().Msg("starting user synchronization")

	cfg, err := usersync.ConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration incomplete")
	}

	whitelist, err := usersync.ReadWhitelist(cfg.WhitelistFile)
	if err != nil {
		log.Fatal().Err(err).Msg("whitelist not readable")
	}
	log.Info().Int("teams", len(whitelist)).Str("file", cfg.WhitelistFile).Msg("whitelist read")

	log.Info().Str("host", cfg.LDAPHost).Msg("connecting to LDAP")
	dir, err := usersync.DialDirectory(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("directory connection failed")
	}
	defer dir.Close()

	log.Info().Str("host", cfg.ElabHost).Msg("connecting to ElabFTW and gathering data about all users")
	store := usersync.NewElabClient(cfg.ElabHost, cfg.ElabAPIKey, log)
	if err := store.CheckConnection(); err != nil {
		log.Fatal().Err(err).Msg("ElabFTW connection failed")
	}
	if err := store.LoadUsers(); err != nil {
		log.Fatal().Err(err).Msg("loading ElabFTW users failed")
	}

	syncer := usersync.NewSyncer(dir, store, cfg, log)
	if err := syncer.Run(whitelist); err != nil {
		log.Fatal().Err(err).Msg("synchronization aborted")
	}
	log.Info().Msg("synchronization finished")
}
