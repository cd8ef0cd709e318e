/*
Package handler provides HTTP handler functions for chat history and read-only room queries.
*/
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"roomchat/internal/app/storage"
	"roomchat/internal/pkg/auth/jwt"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
	"roomchat/internal/pkg/req"
	"roomchat/internal/pkg/resp"
)

const archiveTimeout = 30 * time.Second

// HandleAllChats lists every stored message.
func HandleAllChats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, err := deps.History.ListAll(r.Context())
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed, err))
			return
		}

		resp.RespondSuccess(w, r, messages)
	}
}

// HandleClearChats deletes the stored history. When the archive is configured,
// the history is exported first and a failed export leaves it untouched.
func HandleClearChats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)

		var archiveKey string
		if deps.Storage != nil {
			ctx, cancel := context.WithTimeout(r.Context(), archiveTimeout)
			defer cancel()

			messages, err := deps.History.ListAll(ctx)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed, err))
				return
			}

			archiveKey, err = storage.ArchiveMessages(ctx, deps.Storage, messages)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed, err))
				return
			}
		}

		deleted, err := deps.History.ClearAll(r.Context())
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed, err))
			return
		}

		logx.Info("Chat history cleared", "user_name", identity.UserName, "deleted", deleted, "archive_key", archiveKey)

		data := map[string]any{
			"deletedCount": deleted,
		}
		if archiveKey != "" {
			data["archiveKey"] = archiveKey
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleArchiveDownload redirects to a presigned URL of a stored archive.
func HandleArchiveDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Storage == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrArchiveDisabled))
			return
		}

		key, customErr := req.RequiredQuery(r, "k")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if !storage.IsArchiveKey(key) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		exists, err := deps.Storage.Exists(r.Context(), key)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed, err))
			return
		}
		if !exists {
			resp.RespondError(w, r, errs.NewError(errs.ErrArchiveNotFound))
			return
		}

		url, err := deps.Storage.PresignDownload(r.Context(), key, storage.ArchiveLinkDuration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed, err))
			return
		}

		http.Redirect(w, r, url, http.StatusFound)
	}
}

// HandleAllRooms lists the live rooms.
func HandleAllRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Manager.Rooms())
	}
}

// HandleGetRoom returns a single room, or null when it does not exist.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := deps.Manager.Room(chi.URLParam(r, "roomName"))
		if err != nil {
			resp.RespondSuccess(w, r, nil)
			return
		}

		resp.RespondSuccess(w, r, room)
	}
}

// HandleRoomHost returns the host of a room, or null when it does not exist.
func HandleRoomHost(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomName, customErr := req.RequiredQuery(r, "roomName")
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		host, err := deps.Manager.Host(roomName)
		if err != nil {
			resp.RespondSuccess(w, r, nil)
			return
		}

		resp.RespondSuccess(w, r, host)
	}
}
