package web

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"bom2pic/internal/extract"
	"bom2pic/internal/payment"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Key")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes an error response with CORS headers set
func jsonError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleHealth is the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

// handlePlans returns the available pricing plans
func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"plans": payment.Plans()})
}

// handleSignup creates a user with a fresh trial
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		jsonError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	user, err := s.accounts.GetOrCreate(r.FormValue("email"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Welcome! Your %d-day free trial has started.", s.accounts.TrialDays()),
		"user":    user,
	})
}

// handleProcess extracts images from the uploaded workbooks and streams back
// the resulting ZIP archive
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	maxFileBytes := int64(s.cfg.MaxUploadMB) << 20

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	access, err := s.accounts.CheckAccess(r.FormValue("user_email"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !access.Allowed {
		status := http.StatusUnauthorized
		body := map[string]any{"error": access.Reason, "message": access.Message}
		if access.Reason == "trial_expired" {
			status = http.StatusPaymentRequired
			body["plans_available"] = true
		}
		writeJSON(w, status, body)
		return
	}

	sel, err := extract.NewSelection(r.FormValue("imageColumn"), r.FormValue("nameColumn"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	job := extract.NewJob(sel)
	for _, header := range files {
		if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("Only .xlsx files supported: %s", header.Filename))
			return
		}
		if header.Size > maxFileBytes {
			jsonError(w, http.StatusBadRequest, fmt.Sprintf("File too large: %s (max %dMB)", header.Filename, s.cfg.MaxUploadMB))
			return
		}

		f, err := header.Open()
		if err != nil {
			slog.Error("Error opening upload", "request_id", requestID, "filename", header.Filename, "error", err)
			jsonError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("Error reading upload", "request_id", requestID, "filename", header.Filename, "error", err)
			jsonError(w, http.StatusInternalServerError, "Error reading file. Please try again.")
			return
		}

		if err := job.AddWorkbook(header.Filename, data); err != nil {
			if errors.Is(err, extract.ErrUnsupportedFormat) {
				jsonError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("Error processing workbook", "request_id", requestID, "filename", header.Filename, "error", err)
			jsonError(w, http.StatusInternalServerError, "Processing failed")
			return
		}
	}

	result, err := job.Finish()
	if err != nil {
		slog.Error("Error packaging archive", "request_id", requestID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Processing failed")
		return
	}

	slog.Info("Processed upload",
		"request_id", requestID,
		"user", access.User.Email,
		"files", len(files),
		"processed", result.Summary.Processed,
		"saved", result.Summary.Saved,
		"duplicates", result.Summary.Duplicates,
	)

	filename := fmt.Sprintf("bom2pic_images_%s.zip", time.Now().UTC().Format("20060102_150405"))
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-B2P-Processed", strconv.Itoa(result.Summary.Processed))
	w.Header().Set("X-B2P-Saved", strconv.Itoa(result.Summary.Saved))
	w.Header().Set("X-B2P-Duplicate", strconv.Itoa(result.Summary.Duplicates))
	w.Header().Set("X-B2P-Plan", access.Plan)
	w.Header().Set("X-B2P-Message", access.Message)
	w.Write(result.Archive)
}

// handleCreatePayment creates a checkout session for the chosen plan
func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		jsonError(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	plan := r.FormValue("plan")
	if !payment.ValidPlan(plan) {
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("Invalid plan: %s", plan))
		return
	}

	user, err := s.accounts.GetOrCreate(r.FormValue("email"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	successURL := fmt.Sprintf("%s/?payment=success&plan=%s&email=%s", s.cfg.BaseURL, plan, url.QueryEscape(user.Email))
	cancelURL := s.cfg.BaseURL + "/?payment=cancelled"

	order, err := s.checkout.CreateOrder(r.Context(), plan, successURL, cancelURL)
	if err != nil {
		slog.Error("Error creating checkout session", "plan", plan, "user", user.Email, "error", err)
		jsonError(w, http.StatusBadGateway, "Could not create checkout session")
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// handleVerifyPayment confirms a completed checkout session and activates
// the user's plan
func (s *Server) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		orderID = r.URL.Query().Get("token")
	}
	plan := r.URL.Query().Get("plan")
	email := r.URL.Query().Get("email")

	if orderID == "" || email == "" || !payment.ValidPlan(plan) {
		jsonError(w, http.StatusBadRequest, "order_id, plan and email are required")
		return
	}

	verification, err := s.checkout.VerifyOrder(r.Context(), orderID)
	if err != nil {
		slog.Error("Error verifying payment", "order_id", orderID, "error", err)
		jsonError(w, http.StatusBadGateway, "Could not verify payment")
		return
	}

	if verification.Verified {
		if err := s.accounts.RecordPayment(email, plan); err != nil {
			slog.Error("Error recording payment", "order_id", orderID, "user", email, "error", err)
			jsonError(w, http.StatusInternalServerError, "Payment verified but could not be recorded")
			return
		}
		slog.Info("Payment recorded", "order_id", orderID, "user", email, "plan", plan)
	}

	writeJSON(w, http.StatusOK, verification)
}

// handleAdminUsers lists all users; guarded by the admin key
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if !s.authenticateAdmin(r) {
		jsonError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	users, err := s.accounts.List()
	if err != nil {
		slog.Error("Error listing users", "error", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total": len(users),
		"users": users,
	})
}

// authenticateAdmin compares the provided admin key in constant time
func (s *Server) authenticateAdmin(r *http.Request) bool {
	if s.cfg.AdminKey == "" {
		return false
	}
	key := r.Header.Get("X-Admin-Key")
	if key == "" {
		key = r.URL.Query().Get("key")
	}
	hash := sha256.Sum256([]byte(key))
	return subtle.ConstantTimeCompare(hash[:], s.adminKeyHash[:]) == 1
}
