package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// send formats and sends an event to the WebSocket server.
func send(c *websocket.Conn, event string, data interface{}) error {
	return c.WriteJSON(envelope{Event: event, Data: data})
}

const usage = `commands:
  start                      start the game (admin)
  end [guard|animatronics]   end the game (admin)
  open <side> | close <side> door action (guard)
  move <position> [visible]  move your character (animatronic)
  list                       list participants (admin)
  kick <id>                  kick a participant (admin)
  ping`

// parseCommand turns one line of input into an outbound event.
func parseCommand(line, character string) (string, interface{}, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, false
	}
	arg := func(i int) string {
		if len(fields) > i {
			return fields[i]
		}
		return ""
	}

	switch fields[0] {
	case "start":
		return "startGame", nil, true
	case "end":
		return "endGame", map[string]string{"winner": arg(1)}, true
	case "open", "close":
		return "doorAction", map[string]string{"side": arg(1), "action": fields[0]}, true
	case "move":
		return "characterMove", map[string]interface{}{
			"type":     character,
			"position": arg(1),
			"visible":  arg(2) == "visible",
		}, true
	case "list":
		return "requestPlayerList", nil, true
	case "kick":
		return "kickPlayer", map[string]string{"id": arg(1)}, true
	case "ping":
		return "ping", nil, true
	}
	return "", nil, false
}

func main() {
	addr := flag.String("addr", "localhost:10000", "server address")
	role := flag.String("role", "guard", "guard, animatronic or admin")
	name := flag.String("name", "", "display name")
	password := flag.String("password", "", "admin password")
	character := flag.String("type", "", "animatronic type")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			var msg struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := c.ReadJSON(&msg); err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- %s %s", msg.Event, string(msg.Data))
		}
	}()

	if err := send(c, "authenticate", map[string]string{
		"role":             *role,
		"name":             *name,
		"password":         *password,
		"animatronic_type": *character,
	}); err != nil {
		log.Println("Write error:", err)
		return
	}
	log.Println(usage)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line := <-lines:
			event, data, ok := parseCommand(line, *character)
			if !ok {
				log.Println(usage)
				continue
			}
			if err := send(c, event, data); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> %s", event)
		}
	}
}
