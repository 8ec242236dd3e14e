package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/agora-net/agora/internal/ident"
	"github.com/agora-net/agora/internal/storage"
)

var (
	usernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	emailRegexp    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

const minPasswordLength = 8

func (s server) signUp(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /signup Accounts SignUp
	//
	// Create an account.
	//
	// ---
	// parameters:
	// - name: body
	//   in: body
	//   schema:
	//     "$ref": "#/definitions/SignUpRequest"
	// responses:
	//   '201':
	//     schema:
	//       "$ref": "#/definitions/CreatedResponse"
	//   '409':
	//     description: username or email is already taken
	//     schema:
	//       "$ref": "#/definitions/Error"

	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "failed to decode body")
		return
	}

	if fields := validateSignUp(&req); len(fields) > 0 {
		writeInvalidInput(r.Context(), w, fields)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeInternalError(r.Context(), w, "failed to hash password: "+err.Error())
		return
	}

	id := ident.New()
	if err := s.s.CreateUser(r.Context(), &storage.CreateUserParams{
		ID:           id,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(r.Context(), w, http.StatusConflict, "user already exists")
			return
		}
		writeInternalError(r.Context(), w, "failed to create user: "+err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusCreated, CreatedResponse{ID: id})
}

func (s server) logIn(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /login Accounts LogIn
	//
	// Verify credentials and issue a bearer token.
	//
	// ---
	// parameters:
	// - name: body
	//   in: body
	//   schema:
	//     "$ref": "#/definitions/LogInRequest"
	// responses:
	//   '200':
	//     schema:
	//       "$ref": "#/definitions/TokenResponse"
	//   '401':
	//     schema:
	//       "$ref": "#/definitions/Error"

	var req LogInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "failed to decode body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeInvalidInput(r.Context(), w, map[string]string{"email": "required", "password": "required"})
		return
	}

	u, err := s.s.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// same reply as a wrong password, the response must not reveal
			// whether the email is registered
			writeError(r.Context(), w, http.StatusUnauthorized, "incorrect email or password")
			return
		}
		writeInternalError(r.Context(), w, "failed to get user: "+err.Error())
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		writeError(r.Context(), w, http.StatusUnauthorized, "incorrect email or password")
		return
	}

	t, err := s.t.Issue(u.ID, u.Email)
	if err != nil {
		writeInternalError(r.Context(), w, "failed to issue token: "+err.Error())
		return
	}

	writeOK(r.Context(), w, http.StatusOK, TokenResponse{Token: t})
}

func validateSignUp(req *SignUpRequest) map[string]string {
	fields := map[string]string{}

	if req.FirstName == "" {
		fields["first_name"] = "required"
	}
	if !usernameRegexp.MatchString(req.Username) {
		fields["username"] = "must be 3-30 word characters"
	}
	if !emailRegexp.MatchString(req.Email) {
		fields["email"] = "must be a valid email address"
	}
	if len(req.Password) < minPasswordLength {
		fields["password"] = "must be at least 8 characters"
	}

	return fields
}
