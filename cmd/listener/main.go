package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Intake feed listener. Accepts newline-delimited admission records in
// the form "name|age|symptoms" over TCP and forwards each one to the
// dispatch API. Lets legacy registration terminals feed the system
// without speaking HTTP.

var httpClient = &http.Client{Timeout: 10 * time.Second}

type admission struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Symptoms string `json:"symptoms"`
}

func parseRecord(line string) (admission, error) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) != 3 {
		return admission{}, errors.New("expected name|age|symptoms")
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return admission{}, errors.New("name is required")
	}
	age, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return admission{}, fmt.Errorf("invalid age %q", parts[1])
	}
	return admission{Name: name, Age: age, Symptoms: strings.TrimSpace(parts[2])}, nil
}

func forward(apiURL string, rec admission) (int64, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	resp, err := httpClient.Post(apiURL+"/api/patients/start", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("api returned %d", resp.StatusCode)
	}
	var out struct {
		TicketID int64 `json:"ticket_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.TicketID, nil
}

func handleConnection(conn net.Conn, apiURL string) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := parseRecord(line)
		if err != nil {
			fmt.Fprintf(conn, "ERR %v\n", err)
			continue
		}
		ticketID, err := forward(apiURL, rec)
		if err != nil {
			log.Printf("forward admission for %q: %v", rec.Name, err)
			fmt.Fprintf(conn, "ERR forwarding failed\n")
			continue
		}
		log.Printf("admitted %q as ticket %d", rec.Name, ticketID)
		fmt.Fprintf(conn, "ACK %d\n", ticketID)
	}
}

func serve(listener net.Listener, apiURL string) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Printf("accept error: %v", err)
			return
		}
		go handleConnection(conn, apiURL)
	}
}

func main() {
	addr := os.Getenv("LISTENER_ADDR")
	if addr == "" {
		addr = ":2575"
	}
	apiURL := os.Getenv("DISPATCH_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	defer listener.Close()

	log.Printf("intake listener started on %s, forwarding to %s", addr, apiURL)
	serve(listener, apiURL)
}
