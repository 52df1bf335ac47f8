// Package prompt shows OS-native text and password prompts by shelling out
// to the dialog tool each platform ships with.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/awsl-project/deskshell/internal/hostcmd"
)

// ErrNoDialogTool is returned on Linux when neither zenity nor kdialog is
// installed.
var ErrNoDialogTool = errors.New("no dialog tool found (install zenity or kdialog)")

// Request describes a single-line input prompt.
type Request struct {
	Title     string
	Message   string
	Default   *string
	Sensitive bool
}

func (r Request) defaultText() string {
	if r.Default == nil {
		return ""
	}
	return *r.Default
}

// Prompter shows prompts for one OS.
type Prompter struct {
	runner   hostcmd.Runner
	goos     string
	lookPath func(string) (string, error)
}

// New creates a Prompter for goos.
func New(runner hostcmd.Runner, goos string) *Prompter {
	return &Prompter{runner: runner, goos: goos, lookPath: exec.LookPath}
}

// Prompt shows the dialog and returns the entered text, or nil when the user
// cancelled.
func (p *Prompter) Prompt(ctx context.Context, req Request) (*string, error) {
	name, args, err := p.command(req)
	if err != nil {
		return nil, err
	}

	res, err := p.runner.Run(ctx, name, args...)
	if err != nil {
		return nil, fmt.Errorf("prompt: %w", err)
	}

	switch {
	case res.Code == 0:
		text := strings.TrimSuffix(strings.TrimSuffix(res.Stdout, "\n"), "\r")
		return &text, nil
	case p.cancelled(res):
		log.Printf("[Prompt] %q cancelled", req.Title)
		return nil, nil
	default:
		return nil, fmt.Errorf("%s exited with %d: %s", name, res.Code, res.Combined())
	}
}

func (p *Prompter) cancelled(res hostcmd.Result) bool {
	if p.goos == "darwin" {
		return res.Code == 1 && strings.Contains(res.Stderr, "-128")
	}
	return res.Code == 1
}

func (p *Prompter) command(req Request) (string, []string, error) {
	switch p.goos {
	case "darwin":
		return "osascript", osascriptArgs(req), nil
	case "windows":
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", powershellScript(req)}, nil
	default:
		if _, err := p.lookPath("zenity"); err == nil {
			return "zenity", zenityArgs(req), nil
		}
		if _, err := p.lookPath("kdialog"); err == nil {
			return "kdialog", kdialogArgs(req), nil
		}
		return "", nil, ErrNoDialogTool
	}
}

func osascriptArgs(req Request) []string {
	script := fmt.Sprintf("display dialog %s default answer %s with title %s",
		appleScriptString(req.Message), appleScriptString(req.defaultText()), appleScriptString(req.Title))
	if req.Sensitive {
		script += " with hidden answer"
	}
	return []string{"-e", script, "-e", "text returned of result"}
}

func appleScriptString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func zenityArgs(req Request) []string {
	args := []string{"--entry", "--title", req.Title, "--text", req.Message}
	if req.Default != nil {
		args = append(args, "--entry-text", *req.Default)
	}
	if req.Sensitive {
		args = append(args, "--hide-text")
	}
	return args
}

func kdialogArgs(req Request) []string {
	if req.Sensitive {
		return []string{"--title", req.Title, "--password", req.Message}
	}
	return []string{"--title", req.Title, "--inputbox", req.Message, req.defaultText()}
}

func powerShellString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func powershellScript(req Request) string {
	password := "$false"
	if req.Sensitive {
		password = "$true"
	}
	return strings.Join([]string{
		"Add-Type -AssemblyName System.Windows.Forms",
		"[Console]::OutputEncoding = [System.Text.Encoding]::UTF8",
		"$f = New-Object System.Windows.Forms.Form",
		"$f.Text = " + powerShellString(req.Title),
		"$f.Width = 420; $f.Height = 170; $f.StartPosition = 'CenterScreen'; $f.TopMost = $true",
		"$f.FormBorderStyle = 'FixedDialog'; $f.MaximizeBox = $false; $f.MinimizeBox = $false",
		"$l = New-Object System.Windows.Forms.Label; $l.Left = 10; $l.Top = 10; $l.Width = 380; $l.Text = " + powerShellString(req.Message),
		"$t = New-Object System.Windows.Forms.TextBox; $t.Left = 10; $t.Top = 40; $t.Width = 380; $t.Text = " + powerShellString(req.defaultText()),
		"$t.UseSystemPasswordChar = " + password,
		"$ok = New-Object System.Windows.Forms.Button; $ok.Text = 'OK'; $ok.Left = 230; $ok.Top = 80; $ok.DialogResult = 'OK'",
		"$c = New-Object System.Windows.Forms.Button; $c.Text = 'Cancel'; $c.Left = 315; $c.Top = 80; $c.DialogResult = 'Cancel'",
		"$f.Controls.AddRange(@($l, $t, $ok, $c)); $f.AcceptButton = $ok; $f.CancelButton = $c",
		"if ($f.ShowDialog() -eq 'OK') { [Console]::Out.Write($t.Text); exit 0 } else { exit 1 }",
	}, "; ")
}
