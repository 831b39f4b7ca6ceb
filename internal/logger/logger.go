package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

var levelColors = map[string]color.Attribute{
	"DEBUG": color.FgCyan,
	"INFO":  color.FgGreen,
	"WARN":  color.FgYellow,
	"ERROR": color.FgRed,
	"FATAL": color.FgRed,
}

type record struct {
	Time     string `json:"ts"`
	Level    string `json:"level"`
	Category string `json:"category"`
	Message  string `json:"msg"`
	Caller   string `json:"caller,omitempty"`
}

// Logger prints colored category-tagged lines to stdout and appends
// the same records as JSON lines to a daily file under logs/.
type Logger struct {
	file *os.File
}

func NewLogger() *Logger {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Fatalf("create logs dir: %v", err)
	}
	name := filepath.Join("logs", "events-api-"+time.Now().Format("2006-01-02")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("open log file: %v", err)
	}

	l := &Logger{file: f}
	l.Info("LOGGER", "logging to "+name)
	return l
}

func (l *Logger) emit(lvl Level, category, message string) {
	caller := ""
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	rec := record{
		Time:     time.Now().UTC().Format(time.RFC3339Nano),
		Level:    levelNames[lvl],
		Category: strings.ToUpper(category),
		Message:  message,
		Caller:   caller,
	}

	attr, ok := levelColors[rec.Level]
	if !ok {
		attr = color.FgWhite
	}
	line := fmt.Sprintf("%s %s %s %s",
		color.New(color.FgBlue).Sprint(rec.Time[11:19]),
		color.New(attr).Sprintf("%-5s", rec.Level),
		color.New(attr, color.Bold).Sprintf("[%-10s]", rec.Category),
		rec.Message,
	)
	if rec.Caller != "" {
		line += color.New(color.FgMagenta).Sprint(" (" + rec.Caller + ")")
	}
	fmt.Println(line)

	if l.file != nil {
		if b, err := json.Marshal(rec); err == nil {
			l.file.Write(append(b, '\n'))
		}
	}
}

func (l *Logger) Debug(category, message string) { l.emit(LevelDebug, category, message) }
func (l *Logger) Info(category, message string)  { l.emit(LevelInfo, category, message) }
func (l *Logger) Warn(category, message string)  { l.emit(LevelWarn, category, message) }
func (l *Logger) Error(category, message string) { l.emit(LevelError, category, message) }

func (l *Logger) Fatal(category, message string) {
	l.emit(LevelFatal, category, message)
	os.Exit(1)
}

// Domain-specific helpers.

func (l *Logger) LogPurchase(ticketID, message string) {
	l.Info("PURCHASE", fmt.Sprintf("[%s] %s", ticketID, message))
}

func (l *Logger) LogTeam(action string, teamID int64, message string) {
	l.Info("TEAM", fmt.Sprintf("[%s] team=%d - %s", action, teamID, message))
}

func (l *Logger) LogAuth(event, message string) {
	l.Warn("AUTH", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.Info("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
	}
}
