// sleepsense-import 把本地 JSON / CSV 睡眠数据文件上传到 sleepsense-data
//
// 用法:
//
//	sleepsense-import -user ana@example.com -file night.csv [-server http://localhost:8080] [-format csv]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logging "sleepsense/common/logger"
	"sleepsense/internal/client"

	"go.uber.org/zap"
)

func main() {
	server := flag.String("server", envOr("SLEEPSENSE_SERVER", "http://localhost:8080"), "sleepsense-data base URL")
	user := flag.String("user", os.Getenv("SLEEPSENSE_USER"), "user email (X-User-Email)")
	file := flag.String("file", "", "data file (.json or .csv)")
	format := flag.String("format", "", "json or csv; inferred from the file extension when empty")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if err := run(*server, *user, *file, *format, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(server, user, file, format string, verbose bool) error {
	if strings.TrimSpace(user) == "" {
		return errors.New("-user is required")
	}
	if file == "" {
		return errors.New("-file is required")
	}
	format, err := resolveFormat(file, format)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	logger := zap.NewNop()
	if verbose {
		if logger, err = logging.NewLogger("debug", "console", "sleepsense-import"); err != nil {
			return err
		}
		defer logger.Sync()
	}

	c := client.NewSleepSenseClient(server, user, logger)
	res, err := c.Import(format, content)
	if err != nil {
		if res != nil && res.Message != "" {
			return errors.New(res.Message)
		}
		return err
	}
	fmt.Printf("%s (%d records)\n", res.Message, res.Records)

	cur, err := c.GetCurrent()
	if err != nil {
		return err
	}
	fmt.Printf("current: quality %d, duration %s, type %s\n", cur.Quality, cur.Duration, cur.Type)
	return nil
}

// resolveFormat 未显式指定时按扩展名推断
func resolveFormat(file, format string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), ".")
	}
	switch format {
	case "json", "csv":
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use a .json or .csv file", format)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
