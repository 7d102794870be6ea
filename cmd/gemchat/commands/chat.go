package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/gemchat/gemchat/internal/chat"
	"github.com/gemchat/gemchat/internal/config"
	"github.com/gemchat/gemchat/internal/event"
	"github.com/gemchat/gemchat/internal/logging"
	"github.com/gemchat/gemchat/internal/store"
	"github.com/gemchat/gemchat/internal/transport"
	"github.com/gemchat/gemchat/pkg/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: logging.ParseLevel(logLevel), Pretty: true})

	wg := conc.NewWaitGroup()
	defer wg.Wait()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st, closeStore, err := openStore(ctx, settings)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := st.MigrateLegacy(ctx); err != nil {
		logging.Warn().Err(err).Msg("legacy history migration failed")
	}

	bus := event.NewBus()
	defer bus.Close()

	client := transport.NewClient(settings.ServerURL)
	orchestrator := chat.New(st, client, bus)

	// Settings may change while chatting; reads go through the mutex.
	var mu sync.Mutex
	current := settings
	getSettings := func() config.Settings {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	wg.Go(func() {
		_ = config.Watch(ctx, settingsPath, func(s config.Settings) {
			mu.Lock()
			current = s
			mu.Unlock()
			fmt.Println("\n[settings reloaded]")
		})
	})

	sess := resumeSession(ctx, st)
	sessionID := sess.ID
	getSessionID := func() string {
		mu.Lock()
		defer mu.Unlock()
		return sessionID
	}
	setSession := func(s *types.Session) {
		mu.Lock()
		sessionID = s.ID
		mu.Unlock()
	}

	bus.Subscribe(event.ChunkReceived, func(e event.Event) {
		fmt.Print(e.Data.(event.ChunkReceivedData).Delta)
	})
	bus.Subscribe(event.GenerationFinished, func(e event.Event) {
		data := e.Data.(event.GenerationFinishedData)
		switch {
		case data.Cancelled:
			fmt.Println(chat.StopMarker)
		case data.Outcome != nil:
			fmt.Println(data.Text)
		default:
			fmt.Println()
		}
	})

	// Ctrl-C stops a live generation; a second one exits.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	wg.Go(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sig:
				if !orchestrator.Stop(getSessionID()) {
					cancel()
					fmt.Println()
					os.Exit(0)
				}
			}
		}
	})

	fmt.Printf("gemchat %s | session %q (%s)\n", Version, sess.Title, sess.ID)
	fmt.Println(`Type a message, /image <prompt>, /new, /regen, /sessions, or /quit.`)
	printTranscriptTail(sess)

	reader := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !reader.Scan() {
			return reader.Err()
		}
		line := strings.TrimSpace(reader.Text())

		switch {
		case line == "":
			continue

		case line == "/quit" || line == "/exit":
			return nil

		case line == "/new":
			fresh := store.NewSession()
			if err := st.SaveSession(ctx, fresh); err != nil {
				fmt.Println("failed to create session:", err)
				continue
			}
			setSession(fresh)
			fmt.Println("started new chat")

		case line == "/sessions":
			for _, s := range st.Load(ctx) {
				marker := " "
				if s.ID == getSessionID() {
					marker = "*"
				}
				fmt.Printf("%s %s  %s (%d messages)\n", marker, s.ID, s.Title, len(s.Messages))
			}

		case line == "/regen" || line == "/regenerate":
			if _, err := orchestrator.Regenerate(ctx, getSessionID(), getSettings()); err != nil {
				fmt.Println("cannot regenerate:", err)
			}

		case strings.HasPrefix(line, "/model "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "/model "))
			models, err := client.Models(ctx)
			if err != nil {
				fmt.Println("failed to list models:", err)
				continue
			}
			resolved := transport.ResolveModel(name, models)
			mu.Lock()
			current.Model = resolved
			mu.Unlock()
			fmt.Println("model set to", resolved)

		default:
			if _, err := orchestrator.Send(ctx, getSessionID(), line, nil, getSettings()); err != nil {
				fmt.Println("send failed:", err)
			}
		}
	}
}

// resumeSession picks the most recent session, creating one when the
// store is empty.
func resumeSession(ctx context.Context, st *store.Store) *types.Session {
	if sessions := st.Load(ctx); len(sessions) > 0 {
		return sessions[0]
	}
	sess := store.NewSession()
	if err := st.SaveSession(ctx, sess); err != nil {
		logging.Warn().Err(err).Msg("failed to persist new session")
	}
	return sess
}

// printTranscriptTail shows the last few turns when resuming a session.
func printTranscriptTail(sess *types.Session) {
	const tail = 4
	msgs := sess.Messages
	if len(msgs) > tail {
		msgs = msgs[len(msgs)-tail:]
	}
	for _, m := range msgs {
		role := "ai"
		if m.IsUser {
			role = "you"
		}
		fmt.Printf("[%s] %s\n", role, m.Text)
	}
}
