package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"mcsagent/internal/chat"
	"mcsagent/internal/session"
)

// runChat is the interactive loop. It owns the session lifecycle: one
// session context is installed at startup and replaced wholesale on
// /reset, issuing a fresh session id.
func runChat(ctx context.Context) error {
	rt, err := newRuntime(true)
	if err != nil {
		return err
	}
	defer rt.Close()

	sc := session.New(currentOperator())
	sc.Store = rt.manager.Store()
	session.Install(sc)
	defer session.Reset()

	fmt.Println("mcsagent interactive chat. Commands: /reset, /index <paths>, /memory, /quit")
	fmt.Printf("session %s\n\n", sc.SessionID)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := handleCommand(ctx, rt, &sc, line); quit {
				break
			}
			continue
		}

		msg, err := buildUserMessage(line)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}

		reply, err := rt.runner.Turn(ctx, sc.SessionID, msg)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}
		fmt.Println()
		fmt.Println(reply)
		fmt.Println()
	}
	return scanner.Err()
}

// handleCommand processes slash commands. Returns true to quit.
func handleCommand(ctx context.Context, rt *runtime, sc **session.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/reset":
		rt.runner.Reset((*sc).SessionID)
		fresh := session.New((*sc).OperatorID)
		fresh.Store = rt.manager.Store()
		session.Install(fresh)
		*sc = fresh
		fmt.Printf("Session reset. New session %s\n", fresh.SessionID)

	case "/index":
		if len(fields) < 2 {
			fmt.Println("Usage: /index <paths...>")
			return false
		}
		statuses, err := rt.manager.Indexer().Index(ctx, fields[1:])
		if err != nil {
			fmt.Println("Error:", err)
		}
		for _, s := range statuses {
			fmt.Println(s.String())
		}

	case "/memory":
		keys := (*sc).ListMemories()
		if len(keys) == 0 {
			fmt.Println("No memories stored.")
			return false
		}
		for _, k := range keys {
			fmt.Printf("%s: %s\n", k, (*sc).ReadMemory(k))
		}

	default:
		fmt.Println("Unknown command:", fields[0])
	}
	return false
}

// buildUserMessage turns an input line into a user message. A line of the
// form "@image <path> <text>" attaches the image file inline.
func buildUserMessage(line string) (chat.Message, error) {
	if !strings.HasPrefix(line, "@image ") {
		return chat.User(line), nil
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, "@image "))
	path := rest
	text := ""
	if idx := strings.IndexAny(rest, " \t"); idx > 0 {
		path = rest[:idx]
		text = strings.TrimSpace(rest[idx+1:])
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return chat.Message{}, fmt.Errorf("failed to read image: %w", err)
	}
	mime := http.DetectContentType(data)
	return chat.UserWithImage(text, mime, base64.StdEncoding.EncodeToString(data)), nil
}

func currentOperator() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "operator"
}
