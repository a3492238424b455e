// docsync CLI - command line client for the document sync server
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf16"

	"github.com/Mshivansh2107/Multi-User-Doc-Sync/clients/go/docsync"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/delta"
	"github.com/Mshivansh2107/Multi-User-Doc-Sync/internal/models"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	client := docsync.NewClient(os.Getenv("DOCSYNC_URL"))
	client.Origin = os.Getenv("DOCSYNC_ORIGIN")
	if client.Origin == "" {
		client.Origin = "http://localhost:5173"
	}
	user := models.ParticipantInfo{Name: os.Getenv("DOCSYNC_NAME")}
	if user.Name == "" {
		user.Name = "cli"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]

	switch cmd {
	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "docs":
		resp, err := client.ListDocuments(50, 0)
		exitOnError(err)
		for _, d := range resp.Documents {
			fmt.Printf("  %s  %s (v%d, %s)\n", d.ID, d.Title, d.Version, d.LastModified)
		}

	case "get":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: docsync get <document_id>")
			os.Exit(1)
		}
		doc, err := client.GetDocument(os.Args[2])
		exitOnError(err)
		fmt.Printf("%s (v%d)\n\n%s", doc.Title, doc.Version, doc.Content.Text())

	case "watch":
		docID := models.DefaultDocumentID
		if len(os.Args) > 2 {
			docID = os.Args[2]
		}
		s, err := client.Join(ctx, docID, user)
		exitOnError(err)
		defer s.Close()
		watch(ctx, s)

	case "type":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: docsync type <document_id> <text>")
			os.Exit(1)
		}
		s, err := client.Join(ctx, os.Args[2], user)
		exitOnError(err)
		defer s.Close()

		var doc models.Document
		exitOnError(await(ctx, s, models.EventDocumentContent).Decode(&doc))

		// Append before the trailing newline.
		change := delta.Delta{}
		if n := doc.Content.Length(); n > 1 {
			change.Retain(n-1, nil)
		}
		change.Insert(os.Args[3], nil)
		exitOnError(s.Edit(change))

		select {
		case res := <-result(ctx, s):
			if res.Name == models.EventOperationRejected {
				var r models.OperationResult
				res.Decode(&r)
				exitOnError(fmt.Errorf("edit rejected: %s", r.Reason))
			}
			fmt.Printf("Inserted %d units at v%d\n", len(utf16.Encode([]rune(os.Args[3]))), s.Version())
		case <-ctx.Done():
		}

	case "chat":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: docsync chat <document_id> <message>")
			os.Exit(1)
		}
		s, err := client.Join(ctx, os.Args[2], user)
		exitOnError(err)
		defer s.Close()

		await(ctx, s, models.EventUsersUpdated)
		exitOnError(s.Chat(os.Args[3]))
		var msg models.ChatMessage
		exitOnError(await(ctx, s, models.EventChatMessage).Decode(&msg))
		fmt.Printf("Posted: %s\n", msg.ID)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// watch prints room events until the session ends or ctx is cancelled.
func watch(ctx context.Context, s *docsync.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.Events():
			if !ok {
				return
			}
			ts := time.Now().Format("15:04:05")
			switch ev.Name {
			case models.EventDocumentContent:
				var doc models.Document
				ev.Decode(&doc)
				fmt.Printf("[%s] %s (v%d)\n%s", ts, doc.Title, doc.Version, doc.Content.Text())
			case models.EventDocumentUpdated:
				var content delta.Delta
				ev.Decode(&content)
				fmt.Printf("[%s] v%d\n%s", ts, ev.Version, content.Text())
			case models.EventUsersUpdated:
				var participants []models.Participant
				ev.Decode(&participants)
				names := make([]string, 0, len(participants))
				for _, p := range participants {
					names = append(names, p.Name)
				}
				fmt.Printf("[%s] online: %s\n", ts, strings.Join(names, ", "))
			case models.EventChatMessage:
				var msg models.ChatMessage
				ev.Decode(&msg)
				fmt.Printf("[%s] %s: %s\n", ts, msg.UserName, msg.Message)
			case models.EventTitleUpdated:
				var title string
				ev.Decode(&title)
				fmt.Printf("[%s] title: %s\n", ts, title)
			}
		}
	}
}

// await returns the next event named name.
func await(ctx context.Context, s *docsync.Session, name string) docsync.Event {
	for {
		select {
		case <-ctx.Done():
			os.Exit(130)
		case ev, ok := <-s.Events():
			if !ok {
				exitOnError(fmt.Errorf("connection closed waiting for %s", name))
			}
			if ev.Name == name {
				return ev
			}
		}
	}
}

// result waits for the ack or rejection of the last edit.
func result(ctx context.Context, s *docsync.Session) <-chan docsync.Event {
	out := make(chan docsync.Event, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-s.Events():
				if !ok {
					return
				}
				if ev.Name == models.EventOperationAck || ev.Name == models.EventOperationRejected {
					out <- ev
					return
				}
			}
		}
	}()
	return out
}

func usage() {
	fmt.Println(`docsync CLI - collaborative document sync

Usage: docsync <command> [options]

Commands:
  health                  Check server health
  docs                    List loaded documents
  get <id>                Print a document snapshot
  watch [id]              Join a document and print live changes
  type <id> <text>        Append text to a document
  chat <id> <message>     Post a chat message to a document's room

Environment:
  DOCSYNC_URL      Server URL (default: http://localhost:3001)
  DOCSYNC_ORIGIN   Origin sent on websocket handshakes (default: http://localhost:5173)
  DOCSYNC_NAME     Display name in rooms (default: cli)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
