package server

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/asnkeeper/asn"
	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/namespace"
	"github.com/ceyewan/asnkeeper/timestats"
	"github.com/ceyewan/asnkeeper/xerrors"
)

var digitsPattern = regexp.MustCompile(`^\d+$`)

var (
	errInvalidASN     = errors.New("invalid asn")
	errLookupDisabled = errors.New("asn lookup is disabled")
)

const msgUnregisteredNamespace = "Unregistered namespace. Please add it to the configuration's `ADDITIONAL_MANAGED_NAMESPACES` parameter."

func (s *Server) about(c *gin.Context) {
	c.String(http.StatusOK, "%s v%s is running!", ServiceName, s.cfg.Version)
}

func (s *Server) format(c *gin.Context) {
	c.String(http.StatusOK, "%s", namespace.FormatDescription(s.alloc.Config()))
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// generate 可选 ?namespace=，显式命名空间必须是托管命名空间
func (s *Server) generate(c *gin.Context) {
	var opts []asn.GenerateOption
	if raw := c.Query("namespace"); raw != "" {
		ns, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || !namespace.IsManaged(ns, s.alloc.Config()) {
			c.String(http.StatusBadRequest, msgUnregisteredNamespace)
			return
		}
		opts = append(opts, asn.WithNamespace(ns))
	}

	metadata := map[string]any{
		"client":    "web",
		"path":      c.Request.URL.Path,
		"requestId": clog.RequestIDFromContext(c.Request.Context()),
		"version":   s.cfg.Version,
	}
	rec, err := s.alloc.Generate(c.Request.Context(), metadata, opts...)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) lookup(c *gin.Context) {
	rec, err := s.alloc.Lookup(c.Request.Context(), c.Param("asn"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) stats(c *gin.Context) {
	report, err := timestats.BuildReport(c.Request.Context(), s.alloc.Stats(), namespace.AllManaged(s.alloc.Config()))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// lookupForm 表单只填数字部分，补上前缀后跳转
func (s *Server) lookupForm(c *gin.Context) {
	digits := strings.TrimSpace(c.PostForm("asn"))
	if !digitsPattern.MatchString(digits) {
		c.String(http.StatusBadRequest, "Invalid ASN. The ASN must consist of digits only.")
		return
	}
	c.Redirect(http.StatusFound, "/go/"+s.alloc.Config().Prefix+digits)
}

func (s *Server) redirect(c *gin.Context) {
	target, err := s.lookupURL(c.Param("asn"))
	switch {
	case errors.Is(err, errInvalidASN):
		c.String(http.StatusBadRequest, "Invalid ASN")
		return
	case errors.Is(err, errLookupDisabled):
		c.String(http.StatusBadRequest, "ASN Lookup is disabled")
		return
	}
	c.Redirect(http.StatusFound, target)
}

// lookupURL 把 ASN 代入外部查询地址，默认去掉前缀
func (s *Server) lookupURL(raw string) (string, error) {
	cfg := s.alloc.Config()
	if !namespace.IsValidASN(raw, cfg) {
		return "", errInvalidASN
	}
	if s.cfg.LookupURL == "" {
		return "", errLookupDisabled
	}
	value := raw
	if s.cfg.LookupIncludePrefix {
		if !strings.HasPrefix(value, cfg.Prefix) {
			value = cfg.Prefix + value
		}
	} else {
		value = strings.TrimPrefix(value, cfg.Prefix)
	}
	return strings.ReplaceAll(s.cfg.LookupURL, "{asn}", value), nil
}

// fail 按错误种类映射状态码
func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed", clog.Error(err), clog.String("path", c.Request.URL.Path))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error(), "status": fmt.Sprintf("%d %s", status, http.StatusText(status))})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, xerrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, xerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, xerrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, xerrors.ErrRetriesExhausted), errors.Is(err, xerrors.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
