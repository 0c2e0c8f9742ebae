package captcha

import (
	"fmt"
	"os"
	"strings"
)

const DefaultPrompt = "The user will send you an image containing a 6-digit number drawn over a noisy background. " +
	"Reply only with the 6 digits in the image, with no spaces, quotes or other text."

// LoadPrompt reads a system prompt override from path. An empty path returns
// DefaultPrompt.
func LoadPrompt(path string) (string, error) {
	if path == "" {
		return DefaultPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read captcha prompt: %v", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("captcha prompt file %s is empty", path)
	}
	return prompt, nil
}
