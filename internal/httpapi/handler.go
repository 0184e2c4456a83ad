package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shifter/shift-service/internal/export"
	"shifter/shift-service/internal/models"
	"shifter/shift-service/internal/schedule"
	"shifter/shift-service/internal/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	store      store.Store
	scheduler  *schedule.Scheduler
	logger     *zap.Logger
	leaderRole string
	sessionTTL time.Duration
	now        func() time.Time
}

type Options struct {
	Logger     *zap.Logger
	LeaderRole string
	SessionTTL time.Duration
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type createEmployeeRequest struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	BranchID  *int64 `json:"branch_id"`
}

type createBranchRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type shiftRequest struct {
	UserID    string `json:"user_id"`
	BranchID  int64  `json:"branch_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Position  string `json:"position"`
	Notes     string `json:"notes"`
}

type weeklyHoursResponse struct {
	StartDate       string             `json:"start_date"`
	EndDate         string             `json:"end_date"`
	HoursByPosition map[string]float64 `json:"hours_by_position"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(st store.Store, scheduler *schedule.Scheduler, options Options) *Handler {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	leaderRole := strings.TrimSpace(options.LeaderRole)
	if leaderRole == "" {
		leaderRole = "store leader"
	}
	ttl := options.SessionTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Handler{
		store:      st,
		scheduler:  scheduler,
		logger:     logger,
		leaderRole: leaderRole,
		sessionTTL: ttl,
		now:        time.Now,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/employees", h.handleEmployees)
	mux.HandleFunc("/api/branches", h.handleBranches)
	mux.HandleFunc("/api/shifts", h.handleCreateShift)
	mux.HandleFunc("/api/shifts/", h.handleShiftRoutes)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFromRequest(r)

	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		req.Email = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	} else if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	employee, err := h.authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		h.writeMappedError(w, r, err)
		return
	}

	session, err := h.store.CreateSession(r.Context(), employee.ID, h.now().UTC().Add(h.sessionTTL))
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	h.logger.Info("login", zap.String("employee_id", employee.ID))
	writeJSON(w, http.StatusOK, loginResponse{AccessToken: session.ID, TokenType: "bearer", ExpiresAt: session.ExpiresAt})
}

func (h *Handler) handleEmployees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestID := requestIDFromRequest(r)

	var req createEmployeeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Role = strings.TrimSpace(req.Role)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "a valid email is required")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "password must be at least 6 characters")
		return
	}
	if req.BranchID != nil {
		if _, err := h.store.GetBranch(r.Context(), *req.BranchID); err != nil {
			h.writeMappedError(w, r, err)
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	employee, err := h.store.CreateEmployee(r.Context(), store.CreateEmployeeInput{
		ID:           req.ID,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		BranchID:     req.BranchID,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, requestID, http.StatusBadRequest, "email_registered", "email already registered")
			return
		}
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, employee)
}

func (h *Handler) handleBranches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		branches, err := h.store.ListBranches(r.Context())
		if err != nil {
			h.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, branches)
	case http.MethodPost:
		if !h.requireLeader(w, r) {
			return
		}
		var req createBranchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		branch, err := h.store.CreateBranch(r.Context(), models.Branch{Name: req.Name, Location: req.Location})
		if err != nil {
			h.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, branch)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleCreateShift(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireLeader(w, r) {
		return
	}
	input, ok := decodeShift(w, r)
	if !ok {
		return
	}
	shift, err := h.scheduler.CreateShift(r.Context(), input)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

// handleShiftRoutes dispatches everything under /api/shifts/.
func (h *Handler) handleShiftRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/shifts/"), "/")
	parts := strings.Split(path, "/")
	if path == "" {
		writeError(w, requestIDFromRequest(r), http.StatusNotFound, "not_found", "route not found")
		return
	}

	switch {
	case len(parts) == 1 && parts[0] == "my-shifts":
		h.handleMyShifts(w, r)
	case len(parts) == 1:
		h.handleShiftByID(w, r, parts[0])
	case len(parts) == 2 && parts[0] == "branch":
		h.handleBranchShifts(w, r, parts[1])
	case len(parts) == 2 && (parts[0] == "summary" || parts[0] == "summery"):
		h.handleSummary(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "weekly-board":
		h.handleWeeklyBoard(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "weekly-board" && parts[2] == "export":
		h.handleWeeklyBoardExport(w, r, parts[1])
	case len(parts) == 2 && parts[0] == "weekly-hours":
		h.handleWeeklyHours(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "employee":
		h.handleEmployeeShifts(w, r, parts[1], parts[2])
	default:
		writeError(w, requestIDFromRequest(r), http.StatusNotFound, "not_found", "route not found")
	}
}

func (h *Handler) handleShiftByID(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPut && r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	shiftID, ok := parseID(w, r, "shift_id", rawID)
	if !ok {
		return
	}
	if !h.requireLeader(w, r) {
		return
	}

	if r.Method == http.MethodDelete {
		if err := h.scheduler.DeleteShift(r.Context(), shiftID); err != nil {
			h.writeMappedError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": shiftID, "deleted": true})
		return
	}

	input, ok := decodeShift(w, r)
	if !ok {
		return
	}
	shift, err := h.scheduler.UpdateShift(r.Context(), shiftID, input)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shift)
}

func (h *Handler) handleMyShifts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	shifts, err := h.scheduler.MyShifts(r.Context(), session.EmployeeID)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shifts)
}

func (h *Handler) handleBranchShifts(w http.ResponseWriter, r *http.Request, rawBranchID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	branchID, ok := parseID(w, r, "branch_id", rawBranchID)
	if !ok {
		return
	}
	shifts, err := h.scheduler.BranchShifts(r.Context(), branchID)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shifts)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request, rawBranchID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	branchID, ok := parseID(w, r, "branch_id", rawBranchID)
	if !ok {
		return
	}
	date, ok := parseDateQuery(w, r, "target_date")
	if !ok {
		return
	}
	summary, err := h.scheduler.ShiftSummary(r.Context(), branchID, date)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleWeeklyBoard(w http.ResponseWriter, r *http.Request, rawBranchID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	branchID, ok := parseID(w, r, "branch_id", rawBranchID)
	if !ok {
		return
	}
	startDate, ok := parseDateQuery(w, r, "start_date")
	if !ok {
		return
	}
	days, err := h.scheduler.WeeklyBoard(r.Context(), branchID, startDate)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (h *Handler) handleWeeklyBoardExport(w http.ResponseWriter, r *http.Request, rawBranchID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	branchID, ok := parseID(w, r, "branch_id", rawBranchID)
	if !ok {
		return
	}
	startDate, ok := parseDateQuery(w, r, "start_date")
	if !ok {
		return
	}
	days, err := h.scheduler.WeeklyBoard(r.Context(), branchID, startDate)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	workbook, err := export.WeeklyBoardWorkbook(days)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("weekly-board-%d-%s.xlsx", branchID, startDate.Format(schedule.DateLayout))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if err := workbook.Write(w); err != nil {
		h.logger.Warn("write workbook", zap.Error(err))
	}
}

func (h *Handler) handleWeeklyHours(w http.ResponseWriter, r *http.Request, rawBranchID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	branchID, ok := parseID(w, r, "branch_id", rawBranchID)
	if !ok {
		return
	}
	startDate, ok := parseDateQuery(w, r, "start_date")
	if !ok {
		return
	}
	hours, err := h.scheduler.HoursByPosition(r.Context(), branchID, startDate)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, weeklyHoursResponse{
		StartDate:       startDate.Format(schedule.DateLayout),
		EndDate:         startDate.AddDate(0, 0, 6).Format(schedule.DateLayout),
		HoursByPosition: hours,
	})
}

func (h *Handler) handleEmployeeShifts(w http.ResponseWriter, r *http.Request, rawBranchID, employeeID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	branchID, ok := parseID(w, r, "branch_id", rawBranchID)
	if !ok {
		return
	}
	shifts, err := h.scheduler.EmployeeShifts(r.Context(), branchID, employeeID)
	if err != nil {
		h.writeMappedError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shifts)
}

func decodeShift(w http.ResponseWriter, r *http.Request) (schedule.ShiftInput, bool) {
	requestID := requestIDFromRequest(r)
	var req shiftRequest
	if !decodeJSON(w, r, &req) {
		return schedule.ShiftInput{}, false
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.BranchID <= 0 {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "user_id and branch_id are required")
		return schedule.ShiftInput{}, false
	}
	start, err := schedule.ParseTimestamp(req.StartTime)
	if err != nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "start_time must be an ISO-8601 timestamp")
		return schedule.ShiftInput{}, false
	}
	end, err := schedule.ParseTimestamp(req.EndTime)
	if err != nil {
		writeError(w, requestID, http.StatusBadRequest, "invalid_request", "end_time must be an ISO-8601 timestamp")
		return schedule.ShiftInput{}, false
	}
	return schedule.ShiftInput{
		EmployeeID: req.UserID,
		BranchID:   req.BranchID,
		Start:      start,
		End:        end,
		Position:   req.Position,
		Notes:      req.Notes,
	}, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request, name, raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func parseDateQuery(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", name+" is required")
		return time.Time{}, false
	}
	date, err := schedule.ParseDate(raw)
	if err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", name+" must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

// authenticate returns store.ErrInvalidCredentials for an unknown email and
// for a wrong password alike.
func (h *Handler) authenticate(ctx context.Context, email, password string) (models.Employee, error) {
	employee, err := h.store.GetEmployeeByEmail(ctx, email)
	if errors.Is(err, store.ErrEmployeeNotFound) {
		return models.Employee{}, store.ErrInvalidCredentials
	}
	if err != nil {
		return models.Employee{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(password)) != nil {
		return models.Employee{}, store.ErrInvalidCredentials
	}
	return employee, nil
}

func (h *Handler) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, requestIDFromRequest(r), status, code, message)
}

func mapError(err error) (int, string, string) {
	var validation *schedule.ValidationError
	var conflict *schedule.ConflictError
	var notFound *schedule.NotFoundError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "invalid_request", validation.Error()
	case errors.As(err, &conflict):
		return http.StatusConflict, "shift_conflict", conflict.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, string(notFound.Kind) + "_not_found", notFound.Error()
	case errors.Is(err, store.ErrShiftNotFound):
		return http.StatusNotFound, "shift_not_found", "shift not found"
	case errors.Is(err, store.ErrEmployeeNotFound):
		return http.StatusNotFound, "employee_not_found", "employee not found"
	case errors.Is(err, store.ErrBranchNotFound):
		return http.StatusNotFound, "branch_not_found", "branch not found"
	case errors.Is(err, store.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "incorrect email or password"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, "duplicate", "record already exists"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
