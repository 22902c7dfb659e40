package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"hospital-dispatch/internal/notify"
	"hospital-dispatch/internal/store"
)

var upgrader = websocket.Upgrader{
	// Cross-origin policy is enforced by the CORS middleware for the
	// REST surface; the local frontend connects from its own origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type startRequest struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Symptoms string `json:"symptoms"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// pathID extracts the numeric id segment after the given prefix.
func pathID(path, prefix string) (int64, string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	seg, tail, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, tail, true
}

// handleStartPatient starts a new admission: patient record, reception and
// triage agents, then the allocation queue. It returns once the ticket is
// queued, not once it is assigned.
func handleStartPatient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	ticketID, err := admissions.Submit(r.Context(), req.Name, req.Age, req.Symptoms)
	if err != nil {
		log.Printf("admission failed for %q: %v", req.Name, err)
		writeError(w, http.StatusInternalServerError, "Failed to start workflow")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket_id": ticketID,
		"message":   "Workflow started successfully",
	})
}

// handleGetTicket returns one ticket's status and assignment.
func handleGetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, _, ok := pathID(r.URL.Path, "/api/tickets/")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid ticket id")
		return
	}

	ticket, err := ticketStore.GetTicket(r.Context(), ticketID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	if err != nil {
		log.Printf("get ticket %d: %v", ticketID, err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	patient, err := ticketStore.GetPatient(r.Context(), ticket.PatientID)
	if err != nil {
		log.Printf("get patient %d: %v", ticket.PatientID, err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      ticket.ID,
		"status":  ticket.Status,
		"urgency": ticket.Urgency,
		"patient": map[string]any{
			"id":       patient.ID,
			"name":     patient.Name,
			"symptoms": patient.Symptoms,
		},
		"doctor_id": ticket.DoctorID,
	})
}

// handleDoctorTickets returns all tickets assigned to a doctor, for the
// doctor dashboard.
func handleDoctorTickets(w http.ResponseWriter, r *http.Request) {
	doctorID, tail, ok := pathID(r.URL.Path, "/api/doctor/")
	if !ok || tail != "tickets" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if _, err := ticketStore.GetDoctor(r.Context(), doctorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Doctor not found")
			return
		}
		log.Printf("get doctor %d: %v", doctorID, err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	summaries, err := ticketStore.ListDoctorTickets(r.Context(), doctorID)
	if err != nil {
		log.Printf("list doctor %d tickets: %v", doctorID, err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	out := make([]map[string]any, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, map[string]any{
			"id":      s.ID,
			"status":  s.Status,
			"urgency": s.Urgency,
			"patient": s.PatientName,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDoctorWS is the live-notification endpoint. Doctors connect here
// to receive assignment events; incoming text is echoed back.
func handleDoctorWS(w http.ResponseWriter, r *http.Request) {
	doctorID, _, ok := pathID(r.URL.Path, "/ws/doctor/")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid doctor id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade for doctor %d: %v", doctorID, err)
		return
	}

	sub := notify.NewSubscriber(conn)
	hub.Register(doctorID, sub)
	defer func() {
		hub.Unregister(doctorID, sub)
		conn.Close()
		log.Printf("doctor %d disconnected from websocket", doctorID)
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := sub.WriteText("Echo: " + string(msg)); err != nil {
			return
		}
	}
}

// handleRoot is the health check.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hospital dispatch backend is running"})
}
