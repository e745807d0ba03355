package vision

import "fmt"

// DescribePrompt asks for a short description that survives sanitization
// into a readable filename.
const DescribePrompt = "Describe this image in 3-10 words suitable for a filename. Only provide a description, no punctuation."

// ServiceHint is logged alongside inference failures.
func ServiceHint(model string) string {
	if model == "" {
		model = defaultModel
	}
	return fmt.Sprintf("make sure the model server is running (for Ollama: `ollama serve`) and the model is available (`ollama pull %s`)", model)
}
