package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/thunderdz19/sero-est/internal/models"
	"github.com/thunderdz19/sero-est/internal/service"
	"golang.org/x/term"
)

// ErrAborted is returned when input ends in the middle of a prompt.
var ErrAborted = errors.New("input closed")

// Prompter asks questions on Out and reads the answers from In.
type Prompter struct {
	In  *bufio.Scanner
	Out io.Writer
	// ReadSecret reads a line without echo. Nil falls back to In.
	ReadSecret func() (string, error)
}

// NewTerminalPrompter reads from stdin and hides passwords when stdin is a
// terminal.
func NewTerminalPrompter() *Prompter {
	p := &Prompter{In: bufio.NewScanner(os.Stdin), Out: os.Stdout}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		p.ReadSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(p.Out)
			return string(b), err
		}
	}
	return p
}

// Ask prints label and returns the trimmed answer.
func (p *Prompter) Ask(label string) (string, error) {
	fmt.Fprint(p.Out, label)
	if !p.In.Scan() {
		if err := p.In.Err(); err != nil {
			return "", err
		}
		return "", ErrAborted
	}
	return strings.TrimSpace(p.In.Text()), nil
}

// Secret asks for a value that is not echoed when possible.
func (p *Prompter) Secret(label string) (string, error) {
	if p.ReadSecret == nil {
		return p.Ask(label)
	}
	fmt.Fprint(p.Out, label)
	return p.ReadSecret()
}

// Credentials asks for the login name and password.
func (p *Prompter) Credentials() (nom, password string, err error) {
	if nom, err = p.Ask("Nom: "); err != nil {
		return "", "", err
	}
	if password, err = p.Secret("Mot de passe: "); err != nil {
		return "", "", err
	}
	return nom, password, nil
}

// choose prints numbered options and returns the picked index.
func (p *Prompter) choose(label string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no %s available", strings.ToLower(label))
	}
	for i, o := range options {
		fmt.Fprintf(p.Out, "  %d) %s\n", i+1, o)
	}
	for {
		ans, err := p.Ask(label + ": ")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(ans)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(p.Out, "Choose a number between 1 and %d\n", len(options))
	}
}

// chooseMany reads comma separated option numbers; at least one is needed.
func (p *Prompter) chooseMany(label string, options []string) ([]string, error) {
	for i, o := range options {
		fmt.Fprintf(p.Out, "  %d) %s\n", i+1, o)
	}
	for {
		ans, err := p.Ask(label + " (ex: 1,3): ")
		if err != nil {
			return nil, err
		}
		var picked []string
		seen := map[int]bool{}
		ok := true
		for _, f := range strings.Split(ans, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil || n < 1 || n > len(options) {
				ok = false
				break
			}
			if !seen[n] {
				seen[n] = true
				picked = append(picked, options[n-1])
			}
		}
		if ok && len(picked) > 0 {
			return picked, nil
		}
		fmt.Fprintln(p.Out, "Invalid selection")
	}
}

// ReportForm holds the choices offered by the report prompt.
type ReportForm struct {
	Projects []models.Project
	Phases   []models.Phase
	Stations []models.Station
	Tasks    []string
	Today    time.Time
}

// Report walks the user through a new report.
func (p *Prompter) Report(f ReportForm) (service.ReportDraft, error) {
	var d service.ReportDraft
	var err error

	today := f.Today.Format(models.DateLayout)
	if d.Date, err = p.Ask(fmt.Sprintf("Date [%s]: ", today)); err != nil {
		return d, err
	}
	if d.Date == "" {
		d.Date = today
	}

	names := make([]string, len(f.Projects))
	for i, pr := range f.Projects {
		names[i] = pr.Nom
	}
	i, err := p.choose("Projet", names)
	if err != nil {
		return d, err
	}
	d.ProjetID = f.Projects[i].ID

	names = make([]string, len(f.Phases))
	for i, ph := range f.Phases {
		names[i] = ph.Nom
	}
	if i, err = p.choose("Phase", names); err != nil {
		return d, err
	}
	d.PhaseID = f.Phases[i].ID
	if f.Phases[i].Type == models.PhaseOther {
		if d.PhaseAutre, err = p.Ask("Précisez la phase: "); err != nil {
			return d, err
		}
	}

	if i, err = p.choose("Type de structure", []string{models.StructurePile.Label(), models.StructureCulee.Label()}); err != nil {
		return d, err
	}
	d.TypeStructure = []models.StructureType{models.StructurePile, models.StructureCulee}[i]
	if d.NumeroStructure, err = p.Ask("N° de structure: "); err != nil {
		return d, err
	}

	if d.Taches, err = p.chooseMany("Tâches", f.Tasks); err != nil {
		return d, err
	}

	names = make([]string, len(f.Stations))
	for i, st := range f.Stations {
		names[i] = st.Nom + " (" + st.Numero + ")"
	}
	if i, err = p.choose("Station", names); err != nil {
		return d, err
	}
	d.StationID = f.Stations[i].ID

	d.Remarques, err = p.Ask("Remarques: ")
	return d, err
}
