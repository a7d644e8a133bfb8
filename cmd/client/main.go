package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thunderdz19/sero-est/internal/client"
	"github.com/thunderdz19/sero-est/internal/models"
)

var (
	version   string
	buildDate string
)

const helpText = "Available commands: login, logout, projects, project <id>, submit, recent, summary, export xlsx|pdf, help, exit"

type shell struct {
	api       *client.Client
	prompt    *client.Prompter
	exportDir string
}

// repl runs the interactive shell loop.
func (s *shell) repl(ctx context.Context) {
	if sess := s.api.Sessions.Current(); sess != nil {
		fmt.Fprintf(s.prompt.Out, "Session restored for %s (%s)\n", sess.User.Nom, sess.User.Role)
	}
	for {
		line, err := s.prompt.Ask("sero-est> ")
		if err != nil {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(s.prompt.Out, "Bye")
			return
		}
		if err := s.run(ctx, args); err != nil {
			if errors.Is(err, client.ErrNoSession) {
				fmt.Fprintln(s.prompt.Out, "Please login first")
				continue
			}
			fmt.Fprintln(s.prompt.Out, "Error:", err)
		}
	}
}

func (s *shell) run(ctx context.Context, args []string) error {
	out := s.prompt.Out
	switch args[0] {
	case "help":
		fmt.Fprintln(out, helpText)
	case "login":
		nom, pw, err := s.prompt.Credentials()
		if err != nil {
			return err
		}
		sess, err := s.api.Login(ctx, nom, pw)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Welcome %s (%s)\n", sess.User.Nom, sess.User.Role)
	case "logout":
		if err := s.api.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out")
	case "projects":
		projects, err := s.api.Projects(ctx)
		if err != nil {
			return err
		}
		for _, p := range projects {
			fmt.Fprintf(out, "%s  %-30s %s  depuis %s\n", p.ID, p.Nom, p.Statut, p.DateDebut)
		}
	case "project":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: project <id>")
			return nil
		}
		p, err := s.api.Project(ctx, args[1])
		if err != nil {
			return err
		}
		b, _ := json.MarshalIndent(p, "", "  ")
		fmt.Fprintln(out, string(b))
	case "submit":
		return s.submit(ctx)
	case "recent":
		reports, err := s.api.Recent(ctx)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Fprintln(out, "No reports yet")
		}
		for _, r := range reports {
			fmt.Fprintf(out, "%s  %s  %s %s  %s\n", r.Date, r.ProjetNom, r.TypeStructure.Label(), r.NumeroStructure, r.Statut)
		}
	case "summary":
		sum, err := s.api.Summary(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Rapports: %d\nProjets actifs: %d\nCe mois: %d\n", sum.TotalRapports, sum.ProjetsActifs, sum.CeMois)
	case "export":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: export xlsx|pdf")
			return nil
		}
		name, data, err := s.api.ExportMine(ctx, args[1])
		if err != nil {
			return err
		}
		path := filepath.Join(s.exportDir, filepath.Base(name))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintln(out, "Saved", path)
	default:
		fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func (s *shell) submit(ctx context.Context) error {
	projects, err := s.api.Projects(ctx)
	if err != nil {
		return err
	}
	active := projects[:0]
	for _, p := range projects {
		if p.Selectable() {
			active = append(active, p)
		}
	}
	phases, err := s.api.Phases(ctx)
	if err != nil {
		return err
	}
	stations, err := s.api.SelectableStations(ctx)
	if err != nil {
		return err
	}
	tasks, err := s.api.Tasks(ctx)
	if err != nil {
		return err
	}

	draft, err := s.prompt.Report(client.ReportForm{
		Projects: active,
		Phases:   phases,
		Stations: stations,
		Tasks:    tasks,
		Today:    time.Now(),
	})
	if err != nil {
		return err
	}
	rep, err := s.api.Submit(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.prompt.Out, "Report %s saved (%s)\n", rep.ID, models.StatusRecorded)
	return nil
}

func main() {
	var (
		baseURL     string
		caFile      string
		sessionFile string
		exportDir   string
		showVer     bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&caFile, "ca", "", "path to a CA bundle for https servers")
	flag.StringVar(&sessionFile, "session", client.DefaultSessionFile, "path to the local session file")
	flag.StringVar(&exportDir, "out", ".", "directory for downloaded exports")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("SERO-EST Client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}

	var httpClient *http.Client
	if caFile != "" {
		var err error
		if httpClient, err = client.NewTLSClient(caFile); err != nil {
			log.Fatal(err)
		}
	}

	sessions := client.NewSessionStore(sessionFile)
	if _, err := sessions.Load(); err != nil {
		log.Printf("ignoring unreadable session file: %v", err)
	}

	sh := &shell{
		api:       client.New(baseURL, httpClient, sessions),
		prompt:    client.NewTerminalPrompter(),
		exportDir: exportDir,
	}
	sh.repl(context.Background())
}
