// asnkeeper 签发、查询与维护档案序列号 (ASN)。
//
// 用法：
//
//	asnkeeper [command] [options]
//
// 不带子命令时启动 HTTP 服务，其余子命令见 asnkeeper --help。
// 所有子命令共用同一套配置（环境变量、.env 与 asnkeeper.yaml），
// 并在任何签发之前比对持久化的配置基线。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ceyewan/asnkeeper/config"
)

// version 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

// errReported 错误信息已经输出给用户，只需要以非零状态退出
var errReported = errors.New("already reported")

// cli 一次命令行调用的上下文
type cli struct {
	stdout io.Writer
	stderr io.Writer
	loader config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newCLI(os.Stdout, os.Stderr).run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{stdout: stdout, stderr: stderr}
}

// run 分发子命令并返回进程退出码
func (c *cli) run(ctx context.Context, args []string) int {
	cmd := "server"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "server":
		err = c.runServer(ctx, args)
	case "generate":
		err = c.runGenerate(ctx, args)
	case "stats":
		err = c.runStats(ctx, args)
	case "bump":
		err = c.runBump(ctx, args)
	case "format":
		err = c.runFormat(ctx, args)
	case "help":
		c.printHelp(c.stdout)
		return 0
	default:
		fmt.Fprintf(c.stderr, "unknown command %q\n\n", cmd)
		c.printHelp(c.stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		c.printHelp(c.stdout)
		return 0
	case errors.Is(err, errReported):
		return 1
	default:
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		return 1
	}
}

// flags 创建子命令的 FlagSet，解析错误由 run 统一输出
func (c *cli) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (c *cli) printHelp(w io.Writer) {
	fmt.Fprint(w, `Usage: asnkeeper [command] [options]

Commands:
  server              Start the server (default)
    --port <port>     Port to listen on (defaults to the PORT environment variable)
    --host <host>     Hostname to listen on (defaults to localhost)
  generate            Generate new ASNs
    --count <n>       Number of ASNs to generate (defaults to 1)
  stats               Show statistics about the rate of ASN registrations
    --namespace <n>   Show statistics for a specific namespace. Omit to show all.
    --since <dur>     Suggest a bump delta for a backup this old (e.g. 24h)
    --sigma <s>       Confidence used for the suggestion (defaults to 3)
  bump <delta>        Advance namespace counters after restoring a backup
    --namespace <n>   Bump a specific namespace. Omit to bump all managed namespaces.
    --by <name>       Who performed the bump (stored with the bump record)
    --reason <text>   Why the bump was performed (stored with the bump record)
  format              Describe the ASN format of the current configuration
  help                Show this help message

Options:
  --help  Show this help message
`)
}
