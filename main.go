// persona - a personal conversational-AI client engine with a minimal REPL.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/seleane/persona/internal/backup"
	"github.com/seleane/persona/internal/branch"
	"github.com/seleane/persona/internal/command"
	"github.com/seleane/persona/internal/config"
	"github.com/seleane/persona/internal/export"
	"github.com/seleane/persona/internal/model"
	"github.com/seleane/persona/internal/pipeline"
	"github.com/seleane/persona/internal/prompt"
	"github.com/seleane/persona/internal/session"
	"github.com/seleane/persona/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app bundles the engine components wired at startup.
type app struct {
	cfg       *config.Config
	store     *storage.Store
	sess      *session.Manager
	tree      *branch.Manager
	commands  *command.Registry
	rules     []model.RegexRule
	backup    *backup.Service
	assembler prompt.Assembler
}

// defaultPreset builds the default preset seeded with the configured
// generation parameters.
func (a *app) defaultPreset() *model.Preset {
	p := model.DefaultPreset()
	p.Temperature = a.cfg.Generation.Temperature
	p.MaxTokens = a.cfg.Generation.MaxTokens
	p.ContextLength = a.cfg.Generation.ContextLength
	return p
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.DatabasePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	a := &app{
		cfg:       cfg,
		store:     store,
		tree:      branch.NewManager(),
		backup:    backup.NewService(store, store),
		assembler: prompt.Assembler{TriggerWindow: cfg.Prompt.TriggerWindow},
	}
	a.sess = session.NewManagerWith(a.defaultPreset)

	if err := a.loadState(); err != nil {
		fmt.Fprintf(os.Stderr, "load error: %v\n", err)
		os.Exit(1)
	}

	if err := a.runREPL(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadState pulls persisted state into the in-memory session.
func (a *app) loadState() error {
	// Active preset: persisted default, regenerated when missing.
	preset, err := a.store.LoadPreset(model.DefaultPresetID)
	if errors.Is(err, storage.ErrNotFound) {
		preset = a.defaultPreset()
		if err := a.store.SavePreset(preset); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	a.sess.SetActivePreset(preset)
	a.sess.MarkClean()

	chats, err := a.store.ListChats()
	if err != nil {
		return err
	}
	for _, c := range chats {
		a.tree.Add(c)
	}
	if len(chats) > 0 {
		a.tree.SelectBranch(chats[0].ID)
		a.sess.SetActiveChat(chats[0].ID)
	}

	if a.rules, err = a.store.LoadRules(); err != nil {
		return err
	}
	cmds, err := a.store.LoadCommands()
	if err != nil {
		return err
	}
	a.commands = command.NewRegistry(cmds)
	return nil
}

// =============================================================================
// REPL
// =============================================================================

func (a *app) runREPL() error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := filepath.Join(a.cfg.DataDir, "repl_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("persona %s - type /help for commands\n", Version)

	for {
		input, err := line.Prompt("persona> ")
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C pressed - exit gracefully
				fmt.Println()
				return nil
			}
			// EOF (Ctrl+D) or other error - exit gracefully
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		// Quick-insert commands expand before anything else sees the input.
		if strings.HasPrefix(input, "!") {
			if content, ok := a.commands.Expand(strings.TrimPrefix(input, "!")); ok {
				input = content
			}
		}

		if strings.HasPrefix(input, "/") {
			cont, err := a.handleCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "[error] %v\n", err)
			}
			if !cont {
				return nil
			}
			continue
		}

		if err := a.handleMessage(input); err != nil {
			fmt.Fprintf(os.Stderr, "[error] %v\n", err)
		}
	}
}

// handleMessage appends the user turn and prints the assembled payload that
// would go to the model provider. The network call itself is outside the
// engine; a response is fed back with /respond.
func (a *app) handleMessage(input string) error {
	chat := a.tree.Active()
	if chat == nil {
		chat = model.NewChat("")
		a.tree.Add(chat)
		a.tree.SelectBranch(chat.ID)
		a.sess.SetActiveChat(chat.ID)
	}

	chat.AddUserMessage(input)
	if err := a.store.SaveChat(chat); err != nil {
		return err
	}

	req := a.assembler.Assemble(a.sess.ActivePreset(), chat)
	fmt.Printf("-- assembled request (%d blocks, ~%d tokens, temp %.2f, max %d) --\n",
		len(req.Blocks), req.EstimateTokens(), req.Temperature, req.MaxTokens)
	for _, b := range req.Blocks {
		fmt.Printf("[%s] %s\n", b.Role, b.Content)
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (a *app) handleCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/q", "/exit":
		return false, nil

	case "/help", "/h":
		printHelp()

	case "/respond":
		// Feed a model response through the substitution pipeline and commit
		// it to the active chat. Appending happens only here, after the
		// "call" succeeded, so a cancelled request never mutates the chat.
		chat := a.tree.Active()
		if chat == nil {
			return true, errors.New("no active chat")
		}
		text := pipeline.Apply(a.rules, strings.TrimSpace(strings.TrimPrefix(input, "/respond")))
		chat.AddAssistantMessage(text)
		return true, a.store.SaveChat(chat)

	case "/branch":
		if len(args) < 1 {
			return true, errors.New("usage: /branch <message-index>")
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return true, fmt.Errorf("bad index: %v", err)
		}
		chat := a.tree.Active()
		if chat == nil {
			return true, errors.New("no active chat")
		}
		child, err := a.tree.CreateBranch(chat.ID, idx)
		if err != nil {
			return true, err
		}
		if err := a.store.SaveChat(child); err != nil {
			return true, err
		}
		a.tree.SelectBranch(child.ID)
		a.sess.SetActiveChat(child.ID)
		fmt.Printf("branched at message %d -> %s\n", idx, child.ID)

	case "/branches":
		chat := a.tree.Active()
		if chat == nil {
			return true, errors.New("no active chat")
		}
		for _, b := range a.tree.ListBranches(chat.ID) {
			fmt.Printf("%s  %s (%d messages)\n", b.ID, b.Title(), b.MessageCount())
		}

	case "/rename":
		if len(args) < 2 {
			return true, errors.New("usage: /rename <chat-id> <name>")
		}
		name := strings.Join(args[1:], " ")
		if err := a.tree.RenameBranch(args[0], name); err != nil {
			return true, err
		}
		return true, a.store.SaveChat(a.tree.Get(args[0]))

	case "/delete":
		if len(args) < 1 {
			return true, errors.New("usage: /delete <chat-id>")
		}
		if err := a.tree.DeleteBranch(args[0]); err != nil {
			return true, err
		}
		if err := a.store.DeleteChat(args[0]); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return true, err
		}
		// Reparented children changed on disk too.
		for _, c := range a.tree.All() {
			if err := a.store.SaveChat(c); err != nil {
				return true, err
			}
		}

	case "/select":
		if len(args) < 1 {
			return true, errors.New("usage: /select <chat-id>")
		}
		if err := a.tree.SelectBranch(args[0]); err != nil {
			return true, err
		}
		a.sess.SetActiveChat(args[0])

	case "/preset":
		return true, a.handlePresetCommand(args)

	case "/rule":
		if len(args) < 1 {
			return true, errors.New("usage: /rule <find> [replace]")
		}
		rule := model.RegexRule{Find: args[0]}
		if len(args) > 1 {
			rule.Replace = strings.Join(args[1:], " ")
		}
		if _, err := pipeline.CompileRule(rule); err != nil {
			return true, err
		}
		a.rules = append(a.rules, rule)
		return true, a.store.SaveRules(a.rules)

	case "/backup":
		if len(args) < 1 {
			return true, errors.New("usage: /backup <file>")
		}
		data, err := a.backup.Produce(context.Background())
		if err != nil {
			return true, err
		}
		return true, os.WriteFile(args[0], data, 0644)

	case "/restore":
		if len(args) < 1 {
			return true, errors.New("usage: /restore <file>")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return true, err
		}
		if err := a.backup.Restore(context.Background(), data); err != nil {
			return true, err
		}
		return true, a.loadState()

	default:
		return true, fmt.Errorf("unknown command: %s", cmd)
	}
	return true, nil
}

func (a *app) handlePresetCommand(args []string) error {
	if len(args) == 0 {
		p := a.sess.ActivePreset()
		fmt.Printf("%s (%d modules, temp %.2f, ctx %d)\n", p.Name, len(p.Modules), p.Temperature, p.ContextLength)
		return nil
	}

	switch args[0] {
	case "reset":
		p := a.sess.ResetPreset()
		return a.store.SavePreset(p)

	case "export":
		if len(args) < 2 {
			return errors.New("usage: /preset export <file>")
		}
		data, err := export.ExportPreset(a.sess.ActivePreset())
		if err != nil {
			return err
		}
		return os.WriteFile(args[1], data, 0644)

	case "import":
		if len(args) < 2 {
			return errors.New("usage: /preset import <file>")
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		p, err := export.ImportPreset(data)
		if err != nil {
			return err
		}
		a.sess.SetActivePreset(p)
		return a.store.SavePreset(p)

	default:
		return fmt.Errorf("unknown preset subcommand: %s", args[0])
	}
}

func printHelp() {
	fmt.Print(`Commands:
  /help                    Show this help
  /respond <text>          Commit a model response (runs substitution rules)
  /branch <index>          Fork the active chat at a message index
  /branches                List branches of the active chat
  /rename <id> <name>      Rename a branch
  /delete <id>             Delete a branch (children are reparented)
  /select <id>             Switch the active chat
  /preset [reset|export|import]  Manage the active preset
  /rule <find> [replace]   Add a substitution rule
  /backup <file>           Write a full snapshot
  /restore <file>          Replace local state from a snapshot
  /quit                    Exit
  !<command-id>            Expand a quick command into input
`)
}
