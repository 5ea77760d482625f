package dashboard

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"VocDashboard/src/processor"
	"VocDashboard/src/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server 看板HTTP服务
// 每次请求都从仓库取全量数据，再过滤、聚合，不保存请求间状态
type Server struct {
	repo    *storage.Repository
	logger  *storage.Logger
	metrics *Metrics
	page    *template.Template
	topN    int
	now     func() time.Time
	router  chi.Router
}

// NewServer 创建看板服务，topN<=0 时使用默认的前5名
func NewServer(repo *storage.Repository, logger *storage.Logger, topN int) (*Server, error) {
	if topN <= 0 {
		topN = processor.DashboardTopN
	}
	page, err := template.ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		repo:    repo,
		logger:  logger,
		metrics: NewMetrics(),
		page:    page,
		topN:    topN,
		now:     time.Now,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/logs", s.handleLogs)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/summary", s.handleSummary)
		r.Get("/export.xlsx", s.handleExport)
		r.Post("/reload", s.handleReload)
	})
	return r
}

// ServeHTTP 实现 http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics 返回服务的指标集合
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ErrorResponse JSON错误体
type ErrorResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Request string `json:"request_id,omitempty"`
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Method + " " + r.URL.Path + ": " + err.Error())
	} else {
		s.logger.Warning(r.Method + " " + r.URL.Path + ": " + err.Error())
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Status:  status,
		Error:   err.Error(),
		Request: middleware.GetReqID(r.Context()),
	})
}

// records 取全量数据，失败计数
func (s *Server) records() (*processor.RecordSet, error) {
	rs, err := s.repo.Records()
	if err != nil {
		s.metrics.loadErrors.Inc()
		return nil, err
	}
	s.metrics.rows.Set(float64(rs.Len()))
	return rs, nil
}

// view 解析条件并计算一次看板
type view struct {
	All      *processor.RecordSet
	Sel      processor.Selection
	Filtered *processor.RecordSet
	Summary  processor.Summary
}

// compute 返回HTTP状态码供调用方渲染错误
func (s *Server) compute(r *http.Request, name string) (*view, int, error) {
	rs, err := s.records()
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	sel, err := ParseSelection(r.URL.Query(), rs)
	if err != nil {
		s.metrics.badRequests.WithLabelValues(name).Inc()
		return nil, http.StatusBadRequest, err
	}

	done := s.metrics.observe(name)
	defer done()

	filtered := rs.Filter(sel)
	return &view{
		All:      rs,
		Sel:      sel,
		Filtered: filtered,
		Summary:  processor.SummarizeN(filtered, s.topN),
	}, http.StatusOK, nil
}
