package dto

import (
	"fmt"

	"mito-gallery-service/internal/core/domain"
)

type MitoResponse struct {
	ID                  int64            `json:"id"`
	NeuronID            int64            `json:"neuron_id"`
	Position            domain.Position  `json:"position"`
	Bounds              *domain.Bounds   `json:"bounds,omitempty"`
	Screenshots         []string         `json:"screenshots"`
	ScreenshotAvailable []bool           `json:"screenshot_available"`
	ScreenshotStatus    string           `json:"screenshot_status"`
	Angles              []int            `json:"angles"`
	ViewState           domain.ViewState `json:"view_state"`
}

type MitosPageResponse struct {
	CurrentPage int               `json:"current_page"`
	TotalPages  int               `json:"total_pages"`
	TotalMitos  int               `json:"total_mitos"`
	PerPage     int               `json:"per_page"`
	Pages       []domain.PageLink `json:"pages"`
	Mitos       []MitoResponse    `json:"mitos"`
}

type GenerateScreenshotsResponse struct {
	Success      bool                       `json:"success"`
	Message      string                     `json:"message,omitempty"`
	Error        string                     `json:"error,omitempty"`
	Page         int                        `json:"page,omitempty"`
	SucceededIDs []int64                    `json:"succeeded_ids"`
	FailedIDs    []int64                    `json:"failed_ids"`
	Failures     []domain.GenerationFailure `json:"failures"`
}

type RestartScreenshotsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Removed int    `json:"removed"`
}

type NeuroglancerURLResponse struct {
	URL string `json:"url"`
}

type ListNeuronsResponse struct {
	Items []domain.GroupSummary `json:"items"`
	Total int                   `json:"total"`
}

// ToMitoResponse maps absent screenshots to placeholderURL so the client can
// always render every slot of the carousel.
func ToMitoResponse(pe domain.PageEntity, vs domain.ViewState, placeholderURL string) MitoResponse {
	refs := pe.Artifacts.Refs
	resp := MitoResponse{
		ID:                  pe.Entity.ID,
		NeuronID:            pe.Entity.ParentGroupID,
		Position:            pe.Entity.Position,
		Bounds:              pe.Entity.Bounds,
		Screenshots:         make([]string, len(refs)),
		ScreenshotAvailable: make([]bool, len(refs)),
		ScreenshotStatus:    string(pe.Artifacts.Status),
		Angles:              make([]int, len(refs)),
		ViewState:           vs,
	}
	for i, ref := range refs {
		resp.Angles[i] = ref.Angle.Degrees
		resp.ScreenshotAvailable[i] = ref.Present
		if ref.Present {
			resp.Screenshots[i] = ref.URL
		} else {
			resp.Screenshots[i] = placeholderURL
		}
	}
	return resp
}

func ToMitosPageResponse(page *domain.CatalogPage, viewState func(domain.Entity) domain.ViewState, placeholderURL string) MitosPageResponse {
	mitos := make([]MitoResponse, 0, len(page.Entities))
	for _, pe := range page.Entities {
		mitos = append(mitos, ToMitoResponse(pe, viewState(pe.Entity), placeholderURL))
	}
	return MitosPageResponse{
		CurrentPage: page.Bounds.Page,
		TotalPages:  page.Bounds.TotalPages,
		TotalMitos:  page.Bounds.TotalCount,
		PerPage:     page.Bounds.PageSize,
		Pages:       page.Links,
		Mitos:       mitos,
	}
}

func ToGenerateScreenshotsResponse(report *domain.GenerationReport) GenerateScreenshotsResponse {
	return GenerateScreenshotsResponse{
		Success: true,
		Message: fmt.Sprintf("Generated screenshots for %d mitochondria, %d failed",
			len(report.Succeeded), len(report.Failed)),
		Page:         report.Page,
		SucceededIDs: report.Succeeded,
		FailedIDs:    report.FailedIDs(),
		Failures:     report.Failed,
	}
}
