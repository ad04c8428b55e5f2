package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const defaultBaseURL = "http://localhost:3000/api/assistant/v1"

type chatRequest struct {
	Message   string `json:"message"`
	SessionId string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Response          string `json:"response"`
	Mode              string `json:"mode"`
	NeedsConfirmation bool   `json:"needs_confirmation"`
	SessionId         string `json:"session_id"`
	ConfirmationId    string `json:"confirmation_id"`
	Error             string `json:"error"`
}

var scenarios = map[string][]string{
	"calendar": {
		"내일 오후 2시에 팀 회의 잡아줘",
		"내일 일정 알려줘",
		"방금 만든 일정 삭제해줘",
	},
	"meeting": {
		"회의록 정리해줘: 마케팅 주간 회의. 참석자 김철수, 이영희. 다음 주 금요일 오후 3시에 캠페인 리뷰 미팅을 하기로 했다. 이영희는 수요일까지 시안을 공유한다.",
		"등록 진행해줘",
	},
	"travel": {
		"오사카 비행기 몇 시야?",
		"호텔 체크인 시간 알려줘",
	},
}

func main() {
	baseURL := os.Getenv("SIMULATE_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	name := "calendar"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	script, ok := scenarios[name]
	if !ok {
		log.Fatalf("Unknown scenario %q (have: calendar, meeting, travel)", name)
	}

	title := color.New(color.FgCyan, color.Bold)
	userColor := color.New(color.FgGreen)
	botColor := color.New(color.FgWhite)
	metaColor := color.New(color.FgYellow)
	errColor := color.New(color.FgRed)

	title.Printf("=== Assistant Simulation: %s ===\n", name)

	sessionID := ""
	for _, text := range script {
		userColor.Printf("\nUSER: %s\n", text)

		start := time.Now()
		res, err := sendChat(baseURL, sessionID, text)
		elapsed := time.Since(start)
		if err != nil {
			errColor.Printf("Request failed: %v\n", err)
			return
		}
		sessionID = res.SessionId

		if res.Error != "" {
			errColor.Printf("ASSISTANT ERROR: %s\n", res.Error)
		}
		botColor.Printf("ASSISTANT: %s\n", res.Response)
		metaColor.Printf("  mode=%s needs_confirmation=%v elapsed=%s\n", res.Mode, res.NeedsConfirmation, elapsed.Round(time.Millisecond))
		if res.ConfirmationId != "" {
			metaColor.Printf("  confirmation_id=%s\n", res.ConfirmationId)
		}
	}
}

func sendChat(baseURL, sessionID, text string) (*chatResponse, error) {
	payload, err := json.Marshal(chatRequest{Message: text, SessionId: sessionID})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(baseURL+"/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	var res chatResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
