package terminal

import (
	"bufio"
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/dshills/luaterm/internal/input/key"
	"github.com/dshills/luaterm/internal/logging"
)

// PipeDriver feeds a widget from line-oriented input. Each line is typed
// rune by rune and followed by Enter. Use it with a widget created
// WithMirror so output reaches the caller.
type PipeDriver struct {
	in     io.Reader
	widget *Widget
	log    *logrus.Entry
}

// NewPipeDriver creates a driver reading from in.
func NewPipeDriver(in io.Reader, widget *Widget) *PipeDriver {
	return &PipeDriver{
		in:     in,
		widget: widget,
		log:    logging.Named("pipe"),
	}
}

// Run types input lines into the widget until input ends or ctx is done.
// At end of input a Ctrl-D is sent so the current mode can wind down.
func (d *PipeDriver) Run(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(d.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				d.widget.Dispatch(key.NewRuneEvent('d', key.ModCtrl))
				select {
				case err := <-errc:
					return err
				default:
					return nil
				}
			}
			d.typeLine(line)
		}
	}
}

func (d *PipeDriver) typeLine(line string) {
	d.log.WithField("line", line).Debug("input")
	for _, r := range line {
		d.widget.Dispatch(key.NewRuneEvent(r, key.ModNone))
	}
	d.widget.Dispatch(key.NewSpecialEvent(key.KeyEnter, key.ModNone))
}
