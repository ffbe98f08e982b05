package sandbox

import (
	"encoding/base64"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// b64ChunkSize is the number of base64 characters sent per exec call when
// writing files over the exec channel. Large enough to keep round trips low,
// small enough to stay clear of argv limits.
const b64ChunkSize = 512 * 1024

// writeFileCommands returns the shell command lines that materialize data at
// the given path. The content travels base64-encoded and is appended to a
// transfer file chunk by chunk, then decoded in place. The transfer file is
// removed on success.
func writeFileCommands(filePath string, data []byte, xferID string) []string {
	encoded := base64.StdEncoding.EncodeToString(data)
	tmp := "/tmp/.orange-xfer-" + xferID + ".b64"

	cmds := []string{
		shellquote.Join("mkdir", "-p", path.Dir(filePath)),
		shellquote.Join("rm", "-f", tmp),
	}

	for off := 0; off < len(encoded); off += b64ChunkSize {
		end := off + b64ChunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		cmds = append(cmds, fmt.Sprintf("printf %%s %s >> %s",
			shellquote.Join(encoded[off:end]), shellquote.Join(tmp)))
	}

	cmds = append(cmds, fmt.Sprintf("base64 -d < %s > %s && rm -f %s",
		shellquote.Join(tmp), shellquote.Join(filePath), shellquote.Join(tmp)))
	return cmds
}

// readFileCommand returns the shell command that emits a file base64-encoded
// on stdout. With maxBytes > 0 one extra byte is requested so the caller can
// detect truncation after decoding.
func readFileCommand(filePath string, maxBytes int) string {
	if maxBytes > 0 {
		return fmt.Sprintf("head -c %d %s | base64 | tr -d '\\n'",
			maxBytes+1, shellquote.Join(filePath))
	}
	return fmt.Sprintf("base64 < %s | tr -d '\\n'", shellquote.Join(filePath))
}

// listFilesCommand returns the find invocation that lists a directory in
// parseable form: one "type|size|mtime|relpath" record per line.
func listFilesCommand(dirPath string, recursive bool) string {
	depth := "-maxdepth 1 "
	if recursive {
		depth = ""
	}
	return fmt.Sprintf("find %s -mindepth 1 %s-printf '%%y|%%s|%%T@|%%P\\n'",
		shellquote.Join(dirPath), depth)
}

// parseFindOutput parses listFilesCommand output into entries. Malformed
// lines are skipped.
func parseFindOutput(out string) []FileEntry {
	var entries []FileEntry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 || parts[3] == "" {
			continue
		}

		size, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}

		entry := FileEntry{
			Path:  parts[3],
			Size:  size,
			IsDir: parts[0] == "d",
		}
		if secs, err := strconv.ParseFloat(parts[2], 64); err == nil {
			entry.ModTime = time.Unix(int64(secs), 0)
		}
		entries = append(entries, entry)
	}
	return entries
}

// removePathCommand returns the rm invocation for a file or directory tree.
func removePathCommand(filePath string, recursive bool) string {
	if recursive {
		return shellquote.Join("rm", "-rf", filePath)
	}
	return shellquote.Join("rm", "-f", filePath)
}

// decodeBase64Output decodes the output of readFileCommand, trimming
// whitespace the shell pipeline may have left behind.
func decodeBase64Output(out string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.TrimSpace(out))
}
