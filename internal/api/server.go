package api

import (
	"github.com/fileworks/fileworks/internal/jobstore"
	"github.com/fileworks/fileworks/internal/storage"
	"github.com/fileworks/fileworks/internal/worker"
)

// Server bundles the dependencies of the HTTP surface.
type Server struct {
	Store         jobstore.Store
	Storage       storage.Storage
	Broker        worker.Broker
	Quota         *Quota
	BaseURL       string
	MaxUploadSize int64
}

func NewServer(store jobstore.Store, st storage.Storage, broker worker.Broker, quota *Quota, baseURL string, maxUploadSize int64) *Server {
	return &Server{
		Store:         store,
		Storage:       st,
		Broker:        broker,
		Quota:         quota,
		BaseURL:       baseURL,
		MaxUploadSize: maxUploadSize,
	}
}
