package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Custom help styles
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor).
				MarginTop(1)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	helpArgStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	helpDefaultStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)
)

// StyledHelpPrinter creates a help printer with Lipgloss styling. Commands
// are listed at the top level; a selected command shows its own arguments
// and flags.
func StyledHelpPrinter(options kong.HelpOptions) kong.HelpPrinter {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		fmt.Fprint(ctx.Stdout, renderHelp(ctx))
		return nil
	}
}

func renderHelp(ctx *kong.Context) string {
	var sb strings.Builder

	node := ctx.Selected()
	if node == nil {
		node = ctx.Model.Node
	}

	sb.WriteString(helpTitleStyle.Render("Sonido Loop ∞"))
	sb.WriteString("\n")
	desc := ctx.Model.Help
	if node != ctx.Model.Node && node.Help != "" {
		desc = node.Help
	}
	sb.WriteString(helpDescStyle.Render(desc))
	sb.WriteString("\n")

	sb.WriteString(helpSectionStyle.Render("Usage:"))
	sb.WriteString("\n  ")
	sb.WriteString(node.Path())
	if len(node.Children) > 0 {
		sb.WriteString(" <command>")
	}
	sb.WriteString(" [flags]")
	for _, arg := range node.Positional {
		sb.WriteString(" ")
		sb.WriteString(arg.Summary())
	}
	sb.WriteString("\n")

	if cmds := getCommands(node); len(cmds) > 0 {
		sb.WriteString("\n")
		sb.WriteString(helpSectionStyle.Render("Commands:"))
		sb.WriteString("\n")
		writeEntries(&sb, cmds, helpArgStyle)
	}

	if args := getArguments(node); len(args) > 0 {
		sb.WriteString("\n")
		sb.WriteString(helpSectionStyle.Render("Arguments:"))
		sb.WriteString("\n")
		writeEntries(&sb, args, helpArgStyle)
	}

	if flags := getFlags(node); len(flags) > 0 {
		sb.WriteString("\n")
		sb.WriteString(helpSectionStyle.Render("Flags:"))
		sb.WriteString("\n")
		writeEntries(&sb, flags, helpFlagStyle)
	}

	sb.WriteString("\n")
	return sb.String()
}

type helpEntry struct {
	name       string
	help       string
	defaultVal string
}

func writeEntries(sb *strings.Builder, entries []helpEntry, style lipgloss.Style) {
	width := 0
	for _, e := range entries {
		width = max(width, len(e.name))
	}
	for _, e := range entries {
		sb.WriteString("  ")
		sb.WriteString(style.Render(fmt.Sprintf("%-*s", width, e.name)))
		if e.help != "" {
			sb.WriteString("  ")
			sb.WriteString(e.help)
		}
		if e.defaultVal != "" {
			sb.WriteString(" ")
			sb.WriteString(helpDefaultStyle.Render("(default: " + e.defaultVal + ")"))
		}
		sb.WriteString("\n")
	}
}

func getCommands(node *kong.Node) []helpEntry {
	var cmds []helpEntry
	for _, child := range node.Children {
		if child.Hidden {
			continue
		}
		cmds = append(cmds, helpEntry{name: child.Name, help: child.Help})
	}
	return cmds
}

func getArguments(node *kong.Node) []helpEntry {
	var args []helpEntry
	for _, arg := range node.Positional {
		args = append(args, helpEntry{name: arg.Summary(), help: arg.Help})
	}
	return args
}

func getFlags(node *kong.Node) []helpEntry {
	// Always include help flag
	flags := []helpEntry{{name: "-h, --help", help: "Show context-sensitive help."}}

	for _, group := range node.AllFlags(true) {
		for _, f := range group {
			if f.Name == "help" {
				continue
			}

			name := "--" + f.Name
			if f.Short != 0 {
				name = fmt.Sprintf("-%c, --%s", f.Short, f.Name)
			}
			if !f.IsBool() {
				name += "=" + strings.ToUpper(f.FormatPlaceHolder())
			}

			flags = append(flags, helpEntry{
				name:       name,
				help:       f.Help,
				defaultVal: f.Default,
			})
		}
	}
	return flags
}
