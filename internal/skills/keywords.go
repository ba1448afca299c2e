package skills

import "strings"

// TrackedSkills is the static keyword list behind extracted_skills.
var TrackedSkills = []string{
	// frameworks
	"pytorch", "tensorflow", "keras", "jax", "scikit-learn", "xgboost", "lightgbm",
	// llm
	"transformer", "bert", "gpt", "llm", "llama", "mistral", "claude", "gemini",
	"fine-tuning", "rag", "retrieval augmented generation", "prompt engineering",
	// tools
	"langchain", "llamaindex", "huggingface", "wandb", "mlflow", "gradio", "streamlit",
	// cloud and mlops
	"aws", "azure", "gcp", "kubernetes", "docker", "airflow", "kubeflow",
	// languages
	"python", "rust", "cuda", "sql", "spark",
	// techniques
	"deep learning", "machine learning", "reinforcement learning", "computer vision",
	"nlp", "natural language processing", "gan", "diffusion", "vae",
}

// KeywordSkills returns the tracked skills mentioned in text, matched as
// case-insensitive substrings, in list order. It never calls the model.
func KeywordSkills(text string) []string {
	found := []string{}
	if strings.TrimSpace(text) == "" {
		return found
	}

	lower := strings.ToLower(text)
	for _, skill := range TrackedSkills {
		if strings.Contains(lower, skill) {
			found = append(found, skill)
		}
	}
	return found
}
