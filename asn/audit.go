package asn

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ceyewan/asnkeeper/connector"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// AuditSink 签发后的审计副本。
//
// 写入以 (namespace, counter) 为唯一标识，同一记录重复写入结果相同。
// 审计副本不是事实来源，写入失败不会回滚签发。
type AuditSink interface {
	Name() string
	Write(ctx context.Context, rec Record) error
}

// FileSink 把每条记录写成 Dir/<namespace>/<counter>.log
type FileSink struct {
	Dir string
}

// NewFileSink 创建文件审计目标
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

func (s *FileSink) Name() string { return "file" }

// Path 记录文件路径，计数器左侧以 "_" 补齐到 8 位，使目录列表按计数器排序
func (s *FileSink) Path(ns, counter int64) string {
	c := strconv.FormatInt(counter, 10)
	if pad := 8 - len(c); pad > 0 {
		c = strings.Repeat("_", pad) + c
	}
	return filepath.Join(s.Dir, strconv.FormatInt(ns, 10), c+".log")
}

func (s *FileSink) Write(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return xerrors.Wrapf(err, "encode audit record %s", rec.ASN)
	}
	path := s.Path(rec.Namespace, rec.Counter)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return xerrors.Wrapf(err, "create audit directory for %s", rec.ASN)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return xerrors.Wrapf(err, "write audit record %s", rec.ASN)
	}
	return nil
}

// DefaultSubject NATSSink 的主题前缀
const DefaultSubject = "asn.issued"

// NATSSink 把记录发布到 <Subject>.<namespace>
type NATSSink struct {
	conn    connector.NATSConnector
	subject string
}

// NewNATSSink 创建 NATS 审计目标，subject 为空时使用 DefaultSubject
func NewNATSSink(conn connector.NATSConnector, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{conn: conn, subject: subject}
}

func (s *NATSSink) Name() string { return "nats" }

// Subject 命名空间对应的主题
func (s *NATSSink) Subject(ns int64) string {
	return s.subject + "." + strconv.FormatInt(ns, 10)
}

func (s *NATSSink) Write(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	nc := s.conn.GetClient()
	if nc == nil {
		return xerrors.Wrap(connector.ErrClientNil, "nats audit sink")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return xerrors.Wrapf(err, "encode audit record %s", rec.ASN)
	}
	if err := nc.Publish(s.Subject(rec.Namespace), data); err != nil {
		return xerrors.Wrapf(err, "publish audit record %s", rec.ASN)
	}
	return nil
}
