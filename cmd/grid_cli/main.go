package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

// Cliente de terminal para probar la grilla en vivo contra un servidor corriendo.
func main() {
	_ = godotenv.Load()

	url := os.Getenv("GRID_WS_URL")
	if url == "" {
		url = "ws://localhost:8080/grid/ws"
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	go func() {
		<-interrupt
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		os.Exit(0)
	}()

	go readLoop(conn)

	fmt.Println("===== Grid CLI =====")
	fmt.Println("Comandos:")
	fmt.Println("  join <code> [user]")
	fmt.Println("  leave <code> [user]")
	fmt.Println("  state <code>")
	fmt.Println("  spawn <code> <x> <y> [name]")
	fmt.Println("  move <code> <token_id> <x> <y>")
	fmt.Println("  remove <code> <token_id>")
	fmt.Println("  quit")

	reader := bufio.NewReader(os.Stdin)
	user := "cli"
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}

		var (
			event   string
			payload map[string]any
		)
		switch fields[0] {
		case "quit", "exit":
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case "join":
			if len(fields) < 2 {
				fmt.Println("uso: join <code> [user]")
				continue
			}
			if len(fields) >= 3 {
				user = fields[2]
			}
			event = "join_grid"
			payload = map[string]any{"code": fields[1], "user": user}
		case "leave":
			if len(fields) < 2 {
				fmt.Println("uso: leave <code> [user]")
				continue
			}
			if len(fields) >= 3 {
				user = fields[2]
			}
			event = "leave_grid"
			payload = map[string]any{"code": fields[1], "user": user}
		case "state":
			if len(fields) < 2 {
				fmt.Println("uso: state <code>")
				continue
			}
			event = "request_state"
			payload = map[string]any{"code": fields[1]}
		case "spawn":
			if len(fields) < 4 {
				fmt.Println("uso: spawn <code> <x> <y> [name]")
				continue
			}
			x, errX := strconv.ParseFloat(fields[2], 64)
			y, errY := strconv.ParseFloat(fields[3], 64)
			if errX != nil || errY != nil {
				fmt.Println("coordenadas invalidas")
				continue
			}
			event = "spawn_token"
			payload = map[string]any{"code": fields[1], "x": x, "y": y}
			if len(fields) >= 5 {
				payload["name"] = strings.Join(fields[4:], " ")
			}
		case "move":
			if len(fields) < 5 {
				fmt.Println("uso: move <code> <token_id> <x> <y>")
				continue
			}
			id, errID := strconv.ParseInt(fields[2], 10, 64)
			x, errX := strconv.ParseFloat(fields[3], 64)
			y, errY := strconv.ParseFloat(fields[4], 64)
			if errID != nil || errX != nil || errY != nil {
				fmt.Println("argumentos invalidos")
				continue
			}
			event = "move_token"
			payload = map[string]any{"code": fields[1], "token_id": id, "x": x, "y": y}
		case "remove":
			if len(fields) < 3 {
				fmt.Println("uso: remove <code> <token_id>")
				continue
			}
			id, errID := strconv.ParseInt(fields[2], 10, 64)
			if errID != nil {
				fmt.Println("token_id invalido")
				continue
			}
			event = "remove_token"
			payload = map[string]any{"code": fields[1], "token_id": id}
		default:
			fmt.Println("comando desconocido:", fields[0])
			continue
		}

		msg, err := json.Marshal(map[string]any{"event": event, "data": payload})
		if err != nil {
			fmt.Println("marshal:", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Fatalf("write: %v", err)
		}
	}
}

func readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			log.Printf("read: %v", err)
			os.Exit(1)
		}
		var pretty map[string]any
		if err := json.Unmarshal(msg, &pretty); err != nil {
			fmt.Printf("<< %s\n", msg)
			continue
		}
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Printf("<< %s\n", out)
	}
}
