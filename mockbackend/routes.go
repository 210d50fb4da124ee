package mockbackend

import (
	"net/http"

	"github.com/jrsteele09/go-saverr/accounts"
	"github.com/jrsteele09/go-saverr/auth"
)

// Route patterns for the account routes that carry an account ID.
const (
	RouteAccountSync         = accounts.RouteAccounts + "/{id}/sync"
	RouteAccountTransactions = accounts.RouteAccounts + "/{id}/transactions"
	RouteAccountRefresh      = accounts.RouteAccounts + "/{id}/refresh"
	RouteAccount             = accounts.RouteAccounts + "/{id}"
)

func (s *Server) initRoutes() {
	// AUTH
	s.registerRoute("POST "+auth.RouteSignUp, s.signUpHandler())
	s.registerRoute("POST "+auth.RouteConfirm, s.confirmHandler())
	s.registerRoute("POST "+auth.RouteLogin, s.loginHandler())
	s.registerRoute("POST "+auth.RouteRefresh, s.refreshHandler())
	s.registerRoute("POST "+auth.RouteForgotPassword, s.forgotPasswordHandler())
	s.registerRoute("POST "+auth.RouteResetPassword, s.resetPasswordHandler())
	s.registerRoute("POST "+auth.RouteResendCode, s.resendCodeHandler())

	// ACCOUNTS
	s.registerRoute("POST "+accounts.RouteLinkToken, s.linkTokenHandler(), s.requireBearer)
	s.registerRoute("POST "+accounts.RouteLink, s.linkHandler(), s.requireBearer)
	s.registerRoute("POST "+RouteAccountSync, s.syncHandler(), s.requireBearer)
	s.registerRoute("GET "+RouteAccountTransactions, s.transactionsHandler(), s.requireBearer)
	s.registerRoute("GET "+accounts.RouteAccounts, s.accountsHandler(), s.requireBearer)
	s.registerRoute("POST "+RouteAccountRefresh, s.refreshBalanceHandler(), s.requireBearer)
	s.registerRoute("DELETE "+RouteAccount, s.unlinkHandler(), s.requireBearer)
}

// registerRoute wraps handler with logging, panic recovery, failure injection and mw.
func (s *Server) registerRoute(pattern string, handler http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) {
	chain := []func(http.HandlerFunc) http.HandlerFunc{
		s.loggingMiddleware,
		s.recoverMiddleware,
		s.failureMiddleware(pattern),
	}
	chain = append(chain, mw...)
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, ChainMiddleware(handler, chain...))
}
