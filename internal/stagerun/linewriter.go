package stagerun

import (
	"bytes"
	"log/slog"
)

// lineWriter forwards process output to the structured log sink, one line per
// record, so stage output lands in the same stream as orchestrator logs.
type lineWriter struct {
	logger *slog.Logger
	stream string
	buf    bytes.Buffer
}

func newLineWriter(logger *slog.Logger, stream string) *lineWriter {
	return &lineWriter{logger: logger, stream: stream}
}

// Write implements io.Writer. Partial lines are buffered until a newline
// arrives; exec flushes the pipe on process exit so trailing output is not
// lost for well-behaved commands.
func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// No complete line yet; keep the partial for the next write.
			w.buf.WriteString(line)
			break
		}
		w.logger.Info(line[:len(line)-1], "stream", w.stream)
	}
	return len(p), nil
}
