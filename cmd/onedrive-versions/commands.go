package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NichUK/onedrive-versions/internal/auth"
	"github.com/NichUK/onedrive-versions/internal/config"
	"github.com/NichUK/onedrive-versions/internal/history"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/term"
)

func cmdLogin(cfg *config.Config) error {
	if err := requireClientID(cfg); err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("login needs an interactive terminal")
	}

	provider := auth.NewProvider(cfg.ClientID, cfg.Tenant, cfg.TokenPath, nil)

	tok, err := provider.Token(context.Background(), true)
	if err != nil {
		return err
	}

	if id, err := auth.ParseIdentity(tok); err == nil && id.Username != "" {
		fmt.Printf("Signed in as %s\n", id.Username)
	} else {
		fmt.Println("Signed in")
	}
	return nil
}

func cmdLogout(cfg *config.Config) error {
	provider := auth.NewProvider(cfg.ClientID, cfg.Tenant, cfg.TokenPath, nil)
	if err := provider.SignOut(); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func cmdStatus(cfg *config.Config) error {
	tf, err := auth.LoadToken(cfg.TokenPath)
	if err != nil {
		return err
	}
	if tf == nil || tf.AccessToken == "" {
		fmt.Println("Not signed in")
		return nil
	}

	id, err := auth.ParseIdentity(tf.AccessToken)
	if err != nil {
		return fmt.Errorf("cached token is unreadable: %w", err)
	}

	fmt.Printf("Signed in as   %s\n", orDash(id.Username))
	fmt.Printf("Display name   %s\n", orDash(id.Name))
	fmt.Printf("Tenant         %s\n", orDash(id.TenantID))
	fmt.Printf("Token expires  %s\n", tf.Expiry.Local().Format(time.RFC1123))
	return nil
}

func cmdDetect(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: onedrive-versions detect <path>")
	}

	svc, _, err := newService(cfg)
	if err != nil {
		return err
	}

	m := svc.FindMapping(fs.Arg(0))
	if m == nil {
		fmt.Println("No sync mapping contains this path")
		return nil
	}

	fmt.Printf("Local root   %s\n", m.LocalRoot)
	fmt.Printf("Source       %s\n", m.Source)
	if m.DriveID != "" {
		fmt.Printf("Drive id     %s\n", m.DriveID)
	}
	if m.RemoteRoot != "" {
		fmt.Printf("Remote root  %s\n", m.RemoteRoot)
	}
	if m.URLNamespace != "" {
		fmt.Printf("Namespace    %s\n", m.URLNamespace)
	}
	if m.FullRemotePath != "" {
		fmt.Printf("Remote URL   %s\n", m.FullRemotePath)
	}
	return nil
}

func cmdVersions(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("versions", flag.ExitOnError)
	login := fs.Bool("login", false, "allow an interactive sign-in prompt if no token is cached")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: onedrive-versions versions [-login] <path>")
	}

	svc, _, err := newService(cfg)
	if err != nil {
		return err
	}

	vc, err := svc.LoadVersions(context.Background(), fs.Arg(0), history.LoadOptions{Interactive: *login})
	if err != nil {
		return describeLoadError(err)
	}

	printContext(vc)
	return nil
}

func cmdCat(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	index := fs.Int("n", 0, "version index, 0 = newest")
	output := fs.String("o", "", "write to file instead of stdout")
	login := fs.Bool("login", false, "allow an interactive sign-in prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: onedrive-versions cat [-n index] [-o file] <path>")
	}

	svc, _, err := newService(cfg)
	if err != nil {
		return err
	}

	opts := history.LoadOptions{Interactive: *login}
	path := fs.Arg(0)

	vc, err := svc.LoadVersions(context.Background(), path, opts)
	if err != nil {
		return describeLoadError(err)
	}

	effective, _ := svc.SetIndex(path, *index)
	version := vc.Versions[effective]

	data, err := svc.DownloadVersion(context.Background(), path, version.ID, opts)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, data, 0644)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func cmdRestore(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	index := fs.Int("n", -1, "version index to restore, 0 = newest")
	login := fs.Bool("login", false, "allow an interactive sign-in prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 || *index < 0 {
		return fmt.Errorf("usage: onedrive-versions restore -n <index> <path>")
	}

	svc, _, err := newService(cfg)
	if err != nil {
		return err
	}

	opts := history.LoadOptions{Interactive: *login}
	path := fs.Arg(0)

	vc, err := svc.LoadVersions(context.Background(), path, opts)
	if err != nil {
		return describeLoadError(err)
	}
	if *index >= len(vc.Versions) {
		return fmt.Errorf("version index %d out of range (%d versions)", *index, len(vc.Versions))
	}

	version := vc.Versions[*index]
	if err := svc.RestoreVersion(context.Background(), path, version.ID, opts); err != nil {
		return err
	}

	fmt.Printf("Restored %s to version %s (%s)\n",
		vc.Name, version.ID, version.LastModifiedDateTime.Local().Format(time.RFC1123))
	return nil
}

// watchDebounce coalesces editor save bursts (write + rename + chmod) into
// one reload.
const watchDebounce = 500 * time.Millisecond

func cmdWatch(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	login := fs.Bool("login", false, "allow an interactive sign-in prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: onedrive-versions watch <path>")
	}

	svc, _, err := newService(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := history.LoadOptions{Interactive: *login}
	path := fs.Arg(0)

	vc, err := svc.LoadVersions(ctx, path, opts)
	if err != nil {
		return describeLoadError(err)
	}
	printContext(vc)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			// Editors often replace the file on save, which drops the watch.
			_ = watcher.Add(path)

			vc, err := svc.LoadVersions(ctx, path, history.LoadOptions{})
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload: %v\n", err)
				continue
			}
			fmt.Printf("\n-- %s --\n", time.Now().Format(time.Kitchen))
			printContext(vc)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch: %v\n", watchErr)

		case <-ctx.Done():
			return nil
		}
	}
}

// printContext renders a version table, newest first.
func printContext(vc *history.VersionContext) {
	fmt.Printf("%s: %d version(s), drive %s\n", vc.Name, len(vc.Versions), vc.DriveID)
	for i, v := range vc.Versions {
		marker := " "
		if i == vc.SelectedIndex {
			marker = "*"
		}
		fmt.Printf("%s %3d  %-12s  %s  %10d bytes  %s\n",
			marker, i, v.ID,
			v.LastModifiedDateTime.Local().Format("2006-01-02 15:04:05"),
			v.Size, v.ModifiedBy())
	}
}

// describeLoadError turns pipeline failures into the single user-facing
// message each deserves.
func describeLoadError(err error) error {
	switch {
	case errors.Is(err, history.ErrNoMapping):
		return fmt.Errorf("this file is not under a known OneDrive folder")
	case errors.Is(err, auth.ErrAuthRequired):
		return fmt.Errorf("not signed in: run 'onedrive-versions login', or pass -login")
	case errors.Is(err, history.ErrNoVersions):
		return fmt.Errorf("the remote item reports no version history")
	default:
		return err
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
