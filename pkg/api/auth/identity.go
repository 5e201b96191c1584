package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/valyala/fasthttp"

	"github.com/Uke-Messaging/uke-pallet/pkg/api/router"
	"github.com/Uke-Messaging/uke-pallet/pkg/api/utils"
	"github.com/Uke-Messaging/uke-pallet/pkg/config"
	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
	"github.com/Uke-Messaging/uke-pallet/pkg/models"
)

// caller role
type Role int

const (
	RoleUnauth Role = iota
	RoleFrontend
	RoleBackend
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleFrontend:
		return "frontend"
	case RoleBackend:
		return "backend"
	case RoleAdmin:
		return "admin"
	default:
		return "unauth"
	}
}

// MaxIdentityLength bounds the identity a caller may assert.
const MaxIdentityLength = 128

const callerKey = "caller"

// IdentityError is a failure to establish the caller of a request.
type IdentityError struct {
	Type    string
	Message string
	Code    int
}

func (e *IdentityError) Error() string {
	return e.Message
}

var (
	ErrCallerRequired   = &IdentityError{"caller_required", "caller identity required", fasthttp.StatusUnauthorized}
	ErrCallerTooLong    = &IdentityError{"caller_too_long", "caller identity too long", fasthttp.StatusBadRequest}
	ErrInvalidSignature = &IdentityError{"invalid_signature", "missing or invalid user signature", fasthttp.StatusUnauthorized}
)

// creates an HMAC signature for a user ID
func CreateHMACSignature(userID, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// verifies a user ID against its HMAC signature using available signing keys
func VerifyHMACSignature(userID, signature string) bool {
	for k := range config.GetSigningKeys() {
		expected := CreateHMACSignature(userID, k)
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return true
		}
	}
	return false
}

// security config
type SecConfig struct {
	AllowedOrigins []string
	RPS            float64
	Burst          int
	IPWhitelist    []string
	BackendKeys    map[string]struct{}
	FrontendKeys   map[string]struct{}
	AdminKeys      map[string]struct{}
}

// ResolveCaller establishes the identity a call runs for. A signed
// X-User-ID is accepted from any role; a backend key may also assert
// X-User-ID without a signature.
func ResolveCaller(ctx *fasthttp.RequestCtx) (models.Identity, *IdentityError) {
	if v, ok := ctx.UserValue(callerKey).(string); ok && v != "" {
		return models.Identity(v), nil
	}

	userID := utils.GetUserID(ctx)
	sig := utils.GetUserSignature(ctx)
	if len(userID) > MaxIdentityLength {
		return "", ErrCallerTooLong
	}

	if sig != "" {
		if userID == "" || !VerifyHMACSignature(userID, sig) {
			logger.Warn("invalid_signature", "user", userID, "remote", ctx.RemoteAddr().String(), "path", utils.GetPath(ctx))
			return "", ErrInvalidSignature
		}
		ctx.SetUserValue(callerKey, userID)
		return models.Identity(userID), nil
	}

	if utils.IsBackendRole(ctx) {
		if userID == "" {
			logger.Warn("backend_missing_caller", "remote", ctx.RemoteAddr().String(), "path", utils.GetPath(ctx))
			return "", ErrCallerRequired
		}
		ctx.SetUserValue(callerKey, userID)
		return models.Identity(userID), nil
	}

	logger.Warn("missing_user_signature", "role", utils.GetApiRole(ctx), "remote", ctx.RemoteAddr().String(), "path", utils.GetPath(ctx))
	return "", ErrInvalidSignature
}

// RequireCaller rejects the request unless a caller identity can be
// resolved; handlers read it back with CallerFrom.
func RequireCaller(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		caller, ierr := ResolveCaller(ctx)
		if ierr != nil {
			router.WriteJSONErrorCode(ctx, ierr.Code, ierr.Message, ierr.Type)
			return
		}
		logger.Debug("caller_resolved", "caller", caller, "path", utils.GetPath(ctx))
		next(ctx)
	}
}

// CallerFrom returns the identity set by RequireCaller.
func CallerFrom(ctx *fasthttp.RequestCtx) models.Identity {
	v, _ := ctx.UserValue(callerKey).(string)
	return models.Identity(v)
}
