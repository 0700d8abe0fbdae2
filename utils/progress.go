package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	successColor = "\x1b[32m"
	defaultColor = "\x1b[0m"
)

// ProgressIndicator is a terminal spinner shown while a long running
// operation is in progress.
type ProgressIndicator struct {
	mu         sync.Mutex
	delay      time.Duration
	writer     io.Writer
	message    string
	lastOutput string
	stopChan   chan struct{}

	// StopMsg is printed once the indicator is stopped.
	StopMsg string
}

// NewProgressIndicator instantiates a new progress indicator writing to
// stderr, redrawn every d.
func NewProgressIndicator(msg string, d time.Duration) *ProgressIndicator {
	return &ProgressIndicator{
		delay:    d,
		writer:   os.Stderr,
		message:  msg,
		stopChan: make(chan struct{}, 1),
	}
}

// Start starts the spinner goroutine. It keeps redrawing until Stop is called.
func (pi *ProgressIndicator) Start() {
	go func() {
		for {
			for _, r := range `⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏` {
				select {
				case <-pi.stopChan:
					return
				default:
					pi.mu.Lock()
					output := fmt.Sprintf("\r%s%s %c%s", pi.message, successColor, r, defaultColor)
					fmt.Fprint(pi.writer, output)
					pi.lastOutput = output
					pi.mu.Unlock()

					time.Sleep(pi.delay)
				}
			}
		}
	}()
}

// Stop clears the spinner line and prints StopMsg, if any.
func (pi *ProgressIndicator) Stop() {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	pi.clear()
	if len(pi.StopMsg) > 0 {
		fmt.Fprint(pi.writer, pi.StopMsg)
	}
	pi.stopChan <- struct{}{}
}

// clear erases the last drawn line. The caller must hold the lock.
func (pi *ProgressIndicator) clear() {
	n := utf8.RuneCountInString(pi.lastOutput)
	fmt.Fprint(pi.writer, "\r"+strings.Repeat(" ", n)+"\r\033[K")
	pi.lastOutput = ""
}
