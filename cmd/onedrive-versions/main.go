// onedrive-versions resolves local files synced by OneDrive to their
// remote items and browses the version history.
//
// Sub-commands:
//
//	onedrive-versions login               Sign in with the device-code flow
//	onedrive-versions logout              Remove the cached token
//	onedrive-versions status              Show the signed-in identity
//	onedrive-versions detect <path>       Show the mapping for a path (offline)
//	onedrive-versions versions <path>     List the file's version history
//	onedrive-versions cat <path>          Write one version's bytes to stdout
//	onedrive-versions restore <path>      Make an old version current
//	onedrive-versions watch <path>        Re-list versions whenever the file is saved
package main

import (
	"fmt"
	"os"

	"github.com/NichUK/onedrive-versions/internal/auth"
	"github.com/NichUK/onedrive-versions/internal/config"
	"github.com/NichUK/onedrive-versions/internal/graph"
	"github.com/NichUK/onedrive-versions/internal/history"
	"github.com/NichUK/onedrive-versions/internal/logging"
	"github.com/NichUK/onedrive-versions/internal/mapping"
)

func main() {
	cfg := config.Load()

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "logging init: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "login":
		err = cmdLogin(cfg)
	case "logout":
		err = cmdLogout(cfg)
	case "status":
		err = cmdStatus(cfg)
	case "detect":
		err = cmdDetect(cfg, os.Args[2:])
	case "versions":
		err = cmdVersions(cfg, os.Args[2:])
	case "cat":
		err = cmdCat(cfg, os.Args[2:])
	case "restore":
		err = cmdRestore(cfg, os.Args[2:])
	case "watch":
		err = cmdWatch(cfg, os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "onedrive-versions: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: onedrive-versions <command> [flags]

commands:
  login               sign in with the device-code flow
  logout              remove the cached token
  status              show the signed-in identity
  detect <path>       show the sync mapping for a path (no network)
  versions <path>     list the file's remote version history
  cat <path>          write one version's content to stdout
  restore <path>      make an old version the current content
  watch <path>        re-list versions whenever the file is saved
`)
}

// newService wires the resolution pipeline for command use.
func newService(cfg *config.Config) (*history.Service, *auth.Provider, error) {
	configured, err := mapping.LoadConfigured(cfg.MappingsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading mappings file %s: %w", cfg.MappingsPath, err)
	}

	provider := auth.NewProvider(cfg.ClientID, cfg.Tenant, cfg.TokenPath, nil)
	client := graph.New(graph.Config{
		BaseURL: cfg.GraphBaseURL,
		Timeout: cfg.HTTPTimeout,
	})

	svc := history.NewService(client, provider, &mapping.Discoverer{Configured: configured})
	return svc, provider, nil
}

// requireClientID guards commands that need a sign-in capable provider.
func requireClientID(cfg *config.Config) error {
	if cfg.ClientID == "" {
		return fmt.Errorf("no app client id configured, set ONEDRIVE_VERSIONS_CLIENT_ID")
	}
	return nil
}
