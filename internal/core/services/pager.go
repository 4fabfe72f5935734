package services

import (
	"sort"

	"mito-gallery-service/internal/core/domain"
)

// Paginate computes the bounds of one page. Out-of-range pages are clamped,
// never rejected, so stale page numbers in the UI still resolve. A pageSize
// below 1 is treated as 1.
func Paginate(totalCount, pageSize, requestedPage int) domain.PageBounds {
	if pageSize < 1 {
		pageSize = 1
	}
	if totalCount < 0 {
		totalCount = 0
	}

	totalPages := (totalCount + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	page := requestedPage
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	if start > totalCount {
		start = totalCount
	}
	end := start + pageSize
	if end > totalCount {
		end = totalCount
	}

	return domain.PageBounds{
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalCount: totalCount,
		Start:      start,
		End:        end,
	}
}

// PageLinks lists the page numbers shown in the pagination widget: the
// first and last page plus the neighbours of current, with every gap
// collapsed into one ellipsis.
func PageLinks(current, totalPages int) []domain.PageLink {
	if totalPages < 1 {
		totalPages = 1
	}
	if current < 1 {
		current = 1
	}
	if current > totalPages {
		current = totalPages
	}

	candidates := []int{1, current - 1, current, current + 1, totalPages}
	sort.Ints(candidates)

	links := make([]domain.PageLink, 0, len(candidates)+2)
	last := 0
	for _, p := range candidates {
		if p < 1 || p > totalPages || p == last {
			continue
		}
		if last != 0 && p > last+1 {
			links = append(links, domain.PageLink{Ellipsis: true})
		}
		links = append(links, domain.PageLink{Page: p, Current: p == current})
		last = p
	}
	return links
}
