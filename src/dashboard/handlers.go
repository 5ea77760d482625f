package dashboard

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"VocDashboard/src/processor"
	"VocDashboard/src/report"
)

// OptionsResponse 默认过滤条件与可选项
type OptionsResponse struct {
	Brands     []string  `json:"brands"`
	Categories []string  `json:"categories"`
	Start      string    `json:"start,omitempty"`
	End        string    `json:"end,omitempty"`
	Rows       int       `json:"rows"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// SelectionResponse 实际生效的过滤条件
type SelectionResponse struct {
	Brands     []string `json:"brands"`
	Categories []string `json:"categories"`
	Start      string   `json:"start,omitempty"`
	End        string   `json:"end,omitempty"`
}

// SummaryResponse /api/summary
type SummaryResponse struct {
	Selection SelectionResponse `json:"selection"`
	processor.Summary
}

func newSelectionResponse(sel processor.Selection) SelectionResponse {
	out := SelectionResponse{Brands: sel.Brands, Categories: sel.Categories}
	if out.Brands == nil {
		out.Brands = []string{}
	}
	if out.Categories == nil {
		out.Categories = []string{}
	}
	if sel.Dates != nil {
		out.Start = sel.Dates.Start.Format("2006-01-02")
		out.End = sel.Dates.End.Format("2006-01-02")
	}
	return out
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	rs, err := s.records()
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	sel := processor.DefaultSelection(rs)
	dates := newSelectionResponse(sel)
	render.JSON(w, r, OptionsResponse{
		Brands:     dates.Brands,
		Categories: dates.Categories,
		Start:      dates.Start,
		End:        dates.End,
		Rows:       rs.Len(),
		LoadedAt:   s.repo.LoadedAt(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v, status, err := s.compute(r, "summary")
	if err != nil {
		s.renderError(w, r, status, err)
		return
	}
	render.JSON(w, r, SummaryResponse{
		Selection: newSelectionResponse(v.Sel),
		Summary:   v.Summary,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	v, status, err := s.compute(r, "export")
	if err != nil {
		s.renderError(w, r, status, err)
		return
	}

	// 先写入缓冲区，失败时还能返回500
	var buf bytes.Buffer
	now := s.now()
	if err := report.Write(&buf, v.Summary, v.Sel, now); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(now)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

// ReloadResponse /api/reload
type ReloadResponse struct {
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.repo.Invalidate()
	rs, err := s.records()
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info(fmt.Sprintf("数据已重新加载: %d 行", rs.Len()))
	render.JSON(w, r, ReloadResponse{Rows: rs.Len(), LoadedAt: s.repo.LoadedAt()})
}

// handleLogs 以分块传输持续推送日志
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			// 写入失败说明客户端已断开
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	v, status, err := s.compute(r, "page")
	if err != nil {
		s.logger.Warning("GET /: " + err.Error())
		http.Error(w, err.Error(), status)
		return
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, newPageData(v, s.repo.LoadedAt())); err != nil {
		s.logger.Error("渲染页面失败: " + err.Error())
		http.Error(w, "渲染页面失败", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
