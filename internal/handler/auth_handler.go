/*
Package handler provides HTTP handler functions for user authentication.
*/
package handler

import (
	"errors"
	"net/http"

	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
	"roomchat/internal/pkg/pow"
	"roomchat/internal/pkg/req"
	"roomchat/internal/pkg/resp"
)

type CredentialsInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChallengeSolutionInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandleGetChallenge issues a PoW nonce for sign-up.
func HandleGetChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"nonce":      deps.PoW.GenerateNonce(),
			"difficulty": deps.PoW.Difficulty(),
		})
	}
}

// HandleSolveChallenge validates a PoW solution and returns a single-use proof token.
func HandleSolveChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input ChallengeSolutionInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.PoW.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			if !errors.Is(err, pow.ErrNonceInvalid) && !errors.Is(err, pow.ErrProofInsufficient) {
				logx.Error(err, "PoW validation failed unexpectedly")
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"powToken": token,
		})
	}
}

// HandleSignUp processes the request to create a new account.
// When PoW is enabled, the request must carry a proof token.
func HandleSignUp(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.PoW.Enabled() && !deps.PoW.ConsumeProofToken(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		account, err := deps.Auth.SignUp(r.Context(), input.Username, input.Password)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		logx.Info("User signed up", "user_name", account.UserName)
		resp.RespondSuccess(w, r, account)
	}
}

// HandleLogin verifies user credentials and issues a JWT token.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		result, err := deps.Auth.SignIn(r.Context(), input.Username, input.Password)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		logx.Info("User signed in", "user_name", result.UserName)
		resp.RespondSuccess(w, r, result)
	}
}
