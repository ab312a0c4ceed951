package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// blankSnapshot is sent when the server asks this client for its canvas
const blankSnapshot = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

var errQuit = errors.New("quit")

// ClientFrame is an outbound websocket frame
type ClientFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ServerFrame is an inbound websocket or SSE frame
type ServerFrame struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func newPlayCmd() *cobra.Command {
	var name, color string

	cmd := &cobra.Command{
		Use:   "play [code]",
		Short: "Join a room and play from the terminal",
		Long: `Join a room over the websocket endpoint. Omit the code to open a new room.

Lines typed are sent as chat (and count as guesses). Commands:
  /start [rounds]    start a game (host only)
  /restart [rounds]  start a game with scores reset
  /pick <word>       choose a word when drawing
  /clear             clear the canvas (drawer only)
  /snapshot          ask the drawer for the current canvas
  /leave             leave the room but stay connected
  /quit              disconnect`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := ""
			if len(args) == 1 {
				code = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return play(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), code, name, color)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&color, "color", "", "Player color (random when empty)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// playSession owns one websocket connection; writes are serialized
type playSession struct {
	conn *websocket.Conn
	out  io.Writer

	mu       sync.Mutex
	roomCode string
}

func (p *playSession) send(frame ClientFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return p.conn.WriteJSON(frame)
}

func (p *playSession) code() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roomCode
}

func (p *playSession) setCode(code string) {
	p.mu.Lock()
	p.roomCode = code
	p.mu.Unlock()
}

func play(ctx context.Context, in io.Reader, out io.Writer, code, name, color string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WebSocketURL(), nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	p := &playSession{conn: conn, out: out, roomCode: code}
	if err := p.send(ClientFrame{
		Type:    "join_room",
		Payload: map[string]string{"name": name, "color": color, "roomCode": code},
	}); err != nil {
		return fmt.Errorf("join failed: %w", err)
	}

	readDone := make(chan error, 1)
	go func() { readDone <- p.readLoop() }()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return p.leave()
		case err := <-readDone:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				fmt.Fprintln(out, "Disconnected")
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				return p.leave()
			}
			frame, err := ParseInput(line, p.code())
			if errors.Is(err, errQuit) {
				return p.leave()
			}
			if err != nil {
				fmt.Fprintf(out, "Error: %s\n", err)
				continue
			}
			if frame == nil {
				continue
			}
			if err := p.send(*frame); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}
		}
	}
}

func (p *playSession) leave() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	fmt.Fprintln(p.out, "Left room")
	return nil
}

func (p *playSession) readLoop() error {
	for {
		var frame ServerFrame
		if err := p.conn.ReadJSON(&frame); err != nil {
			return err
		}

		switch frame.Type {
		case "joined_room_success":
			var ack struct {
				RoomCode string `json:"roomCode"`
			}
			if json.Unmarshal(frame.Payload, &ack) == nil {
				p.setCode(ack.RoomCode)
			}
		case "request_canvas_snapshot_to_drawer":
			var req struct {
				RequesterID string `json:"requesterId"`
			}
			if json.Unmarshal(frame.Payload, &req) == nil {
				_ = p.send(ClientFrame{
					Type: "canvas_snapshot",
					Payload: map[string]string{
						"roomCode":  p.code(),
						"targetId":  req.RequesterID,
						"imageData": blankSnapshot,
					},
				})
			}
		}

		if line := FormatFrame(frame); line != "" {
			fmt.Fprintln(p.out, line)
		}
	}
}

// ParseInput turns a line typed by the player into an outbound frame.
// Blank lines yield a nil frame.
func ParseInput(line, roomCode string) (*ClientFrame, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	if !strings.HasPrefix(line, "/") {
		return &ClientFrame{
			Type:    "chat_message",
			Payload: map[string]any{"roomCode": roomCode, "text": line},
		}, nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return nil, errQuit
	case "/start", "/restart":
		payload := map[string]any{"roomCode": roomCode}
		if len(fields) > 1 {
			rounds, err := strconv.Atoi(fields[1])
			if err != nil || rounds < 1 {
				return nil, fmt.Errorf("invalid round count %q", fields[1])
			}
			payload["totalRounds"] = rounds
		}
		if fields[0] == "/restart" {
			payload["resetScores"] = true
		}
		return &ClientFrame{Type: "start_game", Payload: payload}, nil
	case "/pick":
		if len(fields) < 2 {
			return nil, errors.New("usage: /pick <word>")
		}
		return &ClientFrame{
			Type:    "word_selected",
			Payload: map[string]any{"roomCode": roomCode, "word": strings.Join(fields[1:], " ")},
		}, nil
	case "/clear":
		return &ClientFrame{Type: "client_clear_canvas", Payload: map[string]any{"roomCode": roomCode}}, nil
	case "/leave":
		return &ClientFrame{Type: "leave_room"}, nil
	case "/snapshot":
		return &ClientFrame{Type: "request_canvas_snapshot", Payload: map[string]any{"roomCode": roomCode}}, nil
	default:
		return nil, fmt.Errorf("unknown command %s", fields[0])
	}
}

// FormatFrame renders a server frame as one line of text.
// Stroke frames render as an empty string.
func FormatFrame(frame ServerFrame) string {
	switch frame.Type {
	case "joined_room_success":
		var p struct {
			IsHost    bool   `json:"isHost"`
			SessionID string `json:"sessionId"`
			RoomCode  string `json:"roomCode"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		host := ""
		if p.IsHost {
			host = " (host)"
		}
		return fmt.Sprintf("Joined room %s as %s%s", p.RoomCode, p.SessionID, host)
	case "room_players":
		var players []Player
		_ = json.Unmarshal(frame.Payload, &players)
		parts := make([]string, 0, len(players))
		for _, pl := range players {
			marker := ""
			if pl.IsDrawer {
				marker = "*"
			}
			parts = append(parts, fmt.Sprintf("%s%s (%d)", pl.Name, marker, pl.Score))
		}
		return "Players: " + strings.Join(parts, ", ")
	case "game_started":
		var p struct {
			Round       int `json:"round"`
			TotalRounds int `json:"totalRounds"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		return fmt.Sprintf("Game started: round %d/%d", p.Round, p.TotalRounds)
	case "round_started":
		var p struct {
			Round       int    `json:"round"`
			TotalRounds int    `json:"totalRounds"`
			DrawerID    string `json:"drawerId"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		return fmt.Sprintf("Round %d/%d, %s is drawing", p.Round, p.TotalRounds, p.DrawerID)
	case "choose_word":
		var words []string
		_ = json.Unmarshal(frame.Payload, &words)
		return "Choose a word with /pick: " + strings.Join(words, ", ")
	case "set_word_blanks":
		var p struct {
			Length int `json:"length"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		return "Word: " + strings.TrimSpace(strings.Repeat("_ ", p.Length))
	case "start_drawing":
		return "You are drawing"
	case "update_timer":
		var p struct {
			TimeLeft int `json:"timeLeft"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		return fmt.Sprintf("Time left: %ds", p.TimeLeft)
	case "round_ended":
		var p struct {
			Round int `json:"round"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		return fmt.Sprintf("Round %d ended", p.Round)
	case "clear_canvas", "client_clear_canvas":
		return "Canvas cleared"
	case "request_canvas_snapshot_to_drawer":
		return "Canvas snapshot requested"
	case "canvas_snapshot":
		var p struct {
			ImageData string `json:"imageData"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		return fmt.Sprintf("Received canvas snapshot (%d bytes)", len(p.ImageData))
	case "chat_message":
		var p struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		return fmt.Sprintf("%s: %s", p.Sender, p.Text)
	case "correct_guess":
		var p struct {
			Sender string `json:"sender"`
			Points int    `json:"points"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		return fmt.Sprintf("%s guessed the word (+%d)", p.Sender, p.Points)
	case "scores_update":
		return "Scores: " + formatScores(frame.Payload)
	case "game_over":
		return "Game over. Final scores: " + formatScores(frame.Payload)
	case "error":
		var p struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		return fmt.Sprintf("Error: %s (%s)", p.Message, p.Code)
	case "path_begin", "path_point", "path_end":
		return ""
	default:
		return fmt.Sprintf("%s: %s", frame.Type, string(frame.Payload))
	}
}

// formatScores renders a scores payload highest first
func formatScores(raw json.RawMessage) string {
	var p struct {
		Scores map[string]int `json:"scores"`
	}
	_ = json.Unmarshal(raw, &p)

	ids := make([]string, 0, len(p.Scores))
	for id := range p.Scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if p.Scores[ids[i]] != p.Scores[ids[j]] {
			return p.Scores[ids[i]] > p.Scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s=%d", id, p.Scores[id]))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
