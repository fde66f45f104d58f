package httpapi

import (
	"net/http"
	"strings"
	"time"

	"qala.org/internal/audit"
	"qala.org/internal/banking"
	"qala.org/internal/city"
	"qala.org/internal/security"
	"qala.org/internal/session"
	"qala.org/internal/stream"
)

type registerRequest struct {
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type walletLoadRequest struct {
	Amount   float64 `json:"amount"`
	Method   string  `json:"method"`
	CardNo   string  `json:"card_no"`
	WalletID string  `json:"wallet_id"`
}

type payBillRequest struct {
	Amount   float64 `json:"amount"`
	BillType string  `json:"bill_type"`
	Method   string  `json:"method"`
	CardNo   string  `json:"card_no"`
	WalletID string  `json:"wallet_id"`
}

type payParkingRequest struct {
	Amount   float64 `json:"amount"`
	Location string  `json:"location"`
	Method   string  `json:"method"`
	CardNo   string  `json:"card_no"`
	WalletID string  `json:"wallet_id"`
}

type broadcastRequest struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type updatePhoneRequest struct {
	NewPhone string `json:"new_phone"`
}

// failureStatus maps a portal rejection message to an HTTP status.
func failureStatus(msg string) int {
	if msg == security.MsgRateLimited {
		return http.StatusTooManyRequests
	}
	return http.StatusBadRequest
}

// serviceFor picks the payment backend; anything but "crypto" means fiat.
func (a *API) serviceFor(method string) banking.Service {
	if strings.EqualFold(strings.TrimSpace(method), "crypto") {
		return a.crypto
	}
	return a.fiat
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ok, msg := a.login.Register(req.NationalID, req.Name, req.Surname,
		req.Email, req.Address, req.Phone, req.Password)
	if !ok {
		writeError(w, r, failureStatus(msg), msg)
		return
	}

	_ = audit.LogEvent(r.Context(), "portal.register", map[string]any{
		"phone": req.Phone,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"message": msg})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ok, msg := a.login.LoginCitizen(req.Phone, req.Password)
	if !ok {
		status := http.StatusUnauthorized
		if msg == security.MsgRateLimited {
			status = http.StatusTooManyRequests
		}
		writeError(w, r, status, msg)
		return
	}

	token, err := session.Generate(req.Phone, []string{session.RoleCitizen}, a.tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"token":   token,
	})
}

func (a *API) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req adminLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ok, msg := a.login.LoginAdmin(req.Username, req.Password)
	if !ok {
		status := http.StatusUnauthorized
		if msg == security.MsgRateLimited {
			status = http.StatusTooManyRequests
		}
		writeError(w, r, status, msg)
		return
	}

	token, err := session.Generate(req.Username, []string{session.RoleAdmin}, a.tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"token":   token,
	})
}

func (a *API) handleWalletLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	phone, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing session identity")
		return
	}
	var req walletLoadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	svc := a.serviceFor(req.Method)
	ok, msg := svc.LoadMoney(phone, req.Amount, banking.PaymentDetails{
		CardNo:   req.CardNo,
		WalletID: req.WalletID,
	})
	if !ok {
		writeError(w, r, failureStatus(msg), msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"balance": svc.GetBalance(phone),
	})
}

func (a *API) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	phone, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing session identity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": a.fiat.GetBalance(phone),
	})
}

// dispatch routes a payment through the controller's command slot.
func (a *API) dispatch(cmd city.Command) (bool, string) {
	a.dispatchMu.Lock()
	defer a.dispatchMu.Unlock()
	a.ctrl.SetCommand(cmd)
	return a.ctrl.ExecuteCommand()
}

func (a *API) handlePayBill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	phone, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing session identity")
		return
	}
	var req payBillRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.BillType) == "" {
		writeError(w, r, http.StatusBadRequest, "bill_type is required")
		return
	}

	svc := a.serviceFor(req.Method)
	cmd := banking.NewPayBillCommand(svc, req.Amount, req.BillType, phone, banking.PaymentDetails{
		CardNo:   req.CardNo,
		WalletID: req.WalletID,
	}, "")
	ok, msg := a.dispatch(cmd)
	if !ok {
		writeError(w, r, failureStatus(msg), msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"balance": svc.GetBalance(phone),
	})
}

func (a *API) handlePayParking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	phone, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing session identity")
		return
	}
	var req payParkingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	svc := a.serviceFor(req.Method)
	cmd := banking.NewPayBillCommand(svc, req.Amount, "Parking", phone, banking.PaymentDetails{
		CardNo:   req.CardNo,
		WalletID: req.WalletID,
	}, req.Location)
	ok, msg := a.dispatch(cmd)
	if !ok {
		writeError(w, r, failureStatus(msg), msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"balance": svc.GetBalance(phone),
	})
}

func (a *API) handleHomeLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	phone, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing session identity")
		return
	}

	var logs []string
	err := a.ctrl.Directory().View(phone, func(rec *city.UserRecord) {
		logs = rec.Resident.Home.ReadLogs(phone)
	})
	if err != nil {
		writeError(w, r, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleHomeReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	phone, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing session identity")
		return
	}

	var sent bool
	var msg string
	err := a.ctrl.Directory().View(phone, func(rec *city.UserRecord) {
		sent, msg = rec.Resident.SendHomeReport(a.mailer)
	})
	if err != nil {
		writeError(w, r, http.StatusNotFound, "user not found")
		return
	}
	if !sent {
		writeError(w, r, http.StatusBadGateway, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

func (a *API) handleUpdatePhone(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	phone, ok := session.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing session identity")
		return
	}
	var req updatePhoneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ok, msg := a.login.UpdatePhone(phone, req.NewPhone)
	if !ok {
		writeError(w, r, failureStatus(msg), msg)
		return
	}

	// old tokens still name the old phone; the client must log in again
	_ = audit.LogEvent(r.Context(), "portal.phone_updated", map[string]any{
		"new_phone": req.NewPhone,
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": msg})
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": a.ctrl.GetAllUsers(),
	})
}

func (a *API) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, r, http.StatusBadRequest, "q query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": a.ctrl.SearchUsers(query),
	})
}

func (a *API) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req broadcastRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Kind) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, r, http.StatusBadRequest, "kind and message are required")
		return
	}

	full := a.ctrl.BroadcastEmergency(req.Kind, req.Message)
	if a.stream != nil {
		a.stream.Publish(stream.Announcement{
			Kind:      req.Kind,
			Message:   full,
			Timestamp: time.Now().UTC(),
		})
	}

	_ = audit.LogEvent(r.Context(), "portal.broadcast", map[string]any{
		"kind": req.Kind,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   full,
		"observers": a.ctrl.ObserverCount(),
	})
}

func (a *API) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	_ = audit.LogEvent(r.Context(), "portal.logs_exported", map[string]any{
		"entries": a.ctrl.LogCount(),
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = a.ctrl.ExportLogs(w)
}
