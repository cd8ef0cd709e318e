package handler

import (
	"roomchat/internal/app/auth"
	"roomchat/internal/app/chat"
	"roomchat/internal/app/history"
	"roomchat/internal/app/storage"
	"roomchat/internal/configs"
	"roomchat/internal/pkg/pow"
)

// AppDeps bundles everything the HTTP layer needs.
type AppDeps struct {
	Config  *configs.AppConfig
	Manager *chat.Manager
	Gateway *chat.Gateway
	Auth    *auth.Service
	History history.Store
	PoW     *pow.PoWManager

	// Storage is nil when the S3 archive is not configured.
	Storage storage.StorageService
}
