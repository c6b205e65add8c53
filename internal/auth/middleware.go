package auth

import "net/http"

// Header names trusted from the fronting proxy, which terminates the
// real authentication. Anything beyond that proxy must not be able to
// set them.
const (
	headerCustomerID = "X-Customer-Id"
	headerStaffID    = "X-Staff-Id"
	headerSessionID  = "X-Session-Id"
)

// Middleware attaches the request identity and cart session key to the
// context. Authenticated customers use their customer ID as the session
// key so a cart follows the account, not the browser tab.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			CustomerID: r.Header.Get(headerCustomerID),
			StaffID:    r.Header.Get(headerStaffID),
		}

		session := id.CustomerID
		if session == "" {
			session = r.Header.Get(headerSessionID)
		}

		ctx := WithIdentity(r.Context(), id)
		if session != "" {
			ctx = WithSession(ctx, session)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
