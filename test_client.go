//go:build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const baseURL = "http://localhost:8080/api/v1"

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// eye глаз шириной 20 пикселей с заданным EAR
func eye(ear float64) []point {
	o := 20 * ear
	return []point{{0, 0}, {6, -o / 2}, {14, -o / 2}, {20, 0}, {14, o / 2}, {6, o / 2}}
}

func main() {
	// Проверяем health endpoint
	fmt.Println("Проверяем health endpoint...")
	body, status, err := request(http.MethodGet, "/health", nil)
	if err != nil {
		fmt.Printf("Ошибка при обращении к health endpoint: %v\n", err)
		return
	}
	fmt.Printf("Health check ответ (статус %d):\n%s\n\n", status, body)

	if err := simulateDrive(); err != nil {
		fmt.Printf("Ошибка симуляции: %v\n", err)
		os.Exit(1)
	}
}

// simulateDrive имитирует поездку: 2 с бодрствования, 2 с закрытых глаз, 1 с открытых
func simulateDrive() error {
	body, _, err := request(http.MethodPost, "/sessions", map[string]string{"notes": "test client"})
	if err != nil {
		return err
	}
	var session struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return fmt.Errorf("ошибка разбора ответа сессии: %w", err)
	}
	fmt.Printf("Сессия %s начата\n", session.SessionID)

	phases := []struct {
		ear    float64
		frames int
	}{
		{0.30, 60},
		{0.12, 60},
		{0.31, 30},
	}

	start := time.Now()
	frame := 0
	for _, phase := range phases {
		for i := 0; i < phase.frames; i++ {
			ts := start.Add(time.Duration(frame) * time.Second / 30).UnixMilli()
			frame++

			body, status, err := request(http.MethodPost, "/sessions/"+session.SessionID+"/frames", map[string]interface{}{
				"timestamp_ms": ts,
				"left_eye":     eye(phase.ear),
				"right_eye":    eye(phase.ear),
			})
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("кадр %d: статус %d: %s", frame, status, body)
			}

			var outcome struct {
				Alert   *json.RawMessage `json:"alert"`
				Message string           `json:"message"`
			}
			if err := json.Unmarshal(body, &outcome); err == nil && outcome.Alert != nil {
				fmt.Printf("Кадр %d: %s\n", frame, outcome.Message)
			}
		}
	}

	body, _, err = request(http.MethodGet, "/sessions/"+session.SessionID+"/summary", nil)
	if err != nil {
		return err
	}
	fmt.Printf("Сводка сессии:\n%s\n", body)

	body, _, err = request(http.MethodDelete, "/sessions/"+session.SessionID, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Сессия завершена:\n%s\n", body)
	return nil
}

func request(method, path string, payload interface{}) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка кодирования запроса: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка отправки запроса: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	return body, resp.StatusCode, nil
}
