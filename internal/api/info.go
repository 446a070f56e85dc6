package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-style/internal/livesync"
)

type InfoHandler struct {
	core    *livesync.Core
	store   string
	slot    string
	dataDir string
}

func NewInfoHandler(core *livesync.Core, store, slot, dataDir string) *InfoHandler {
	return &InfoHandler{core: core, store: store, slot: slot, dataDir: dataDir}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"), operationID("get-info"))
}

type InfoBody struct {
	Name          string   `json:"name" doc:"Service name"`
	Version       string   `json:"version" doc:"Service version"`
	DataDir       string   `json:"data_dir" doc:"Data directory path"`
	Store         string   `json:"store" doc:"Persistence backend" example:"file"`
	Slot          string   `json:"slot" doc:"Persistence slot name" example:"plat-style.style"`
	StyleVersion  uint64   `json:"style_version" doc:"Published document version"`
	Saves         int      `json:"saves" doc:"Persistence writes attempted this session"`
	LastSaveError string   `json:"last_save_error,omitempty" doc:"Error of the latest write, if it failed"`
	Features      []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	saves, saveErr := h.core.SaveStatus()
	body := InfoBody{
		Name:         "plat-style",
		Version:      "0.1.0",
		DataDir:      h.dataDir,
		Store:        h.store,
		Slot:         h.slot,
		StyleVersion: h.core.Version(),
		Saves:        saves,
		Features:     []string{"live-edit", "click-to-locate", "import", "deep-link", h.store},
	}
	if saveErr != nil {
		body.LastSaveError = saveErr.Error()
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
