package targets

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// ReadHosts reads one host per line. Blank lines and '#' comments are skipped.
func ReadHosts(r io.Reader) ([]string, error) {
	var hosts []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			hosts = append(hosts, line)
		}
	}
	return hosts, scanner.Err()
}

// ReadHostsFile is ReadHosts on a file path.
func ReadHostsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadHosts(f)
}
