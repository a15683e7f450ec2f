package cloud

import (
	"time"

	"github.com/charmbracelet/log"
)

// progress 记录开始时间，结束时连同耗时一起输出日志
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
