package skills

import (
	"fmt"
	"strings"
)

const (
	discussionBodyLimit = 1000
	jobDescriptionLimit = 1500
)

const paperPromptTemplate = `Analyze this ML/AI research paper and extract ONLY marketable, learnable skills.

Title: %s
Abstract: %s

Focus on skills that:
- Can be learned by ML engineers/researchers
- Are relevant to job market
- Are transferable across projects
- Represent real tools, frameworks, or techniques

Extract and return ONLY a JSON object:

{
"core_frameworks": ["PyTorch", "TensorFlow", "JAX"],
"ml_techniques": ["Transformer architecture", "Reinforcement Learning", "Fine-tuning"],
"application_areas": ["Computer Vision", "NLP", "Time Series"],
"programming_skills": ["Python", "CUDA", "Distributed Training"],
"emerging_trends": ["Mixture of Experts", "Diffusion Models"]
}

Rules:
- Use STANDARD names (e.g., "PyTorch" not "PyTorch 2.0")
- Focus on GENERAL techniques (e.g., "Knowledge Distillation" not "GRACE score")
- Include WIDELY-USED tools only
- Skip paper-specific datasets/models unless they're industry-standard
- Emerging trends = techniques gaining traction but not yet mainstream

Return ONLY valid JSON. No explanations.
`

const repoPromptTemplate = `Analyze this GitHub repository and extract detailed information.

Repository Name: %s
Description: %s
Topics: %s

Extract and return a JSON object with these fields:
1. "tech_stack": Technologies and languages (e.g., ["Python 3.11", "FastAPI", "PostgreSQL"])
2. "ml_frameworks": ML frameworks (e.g., ["PyTorch", "TensorFlow", "scikit-learn"])
3. "tools": Development tools (e.g., ["Docker", "Kubernetes", "MLflow"])
4. "use_cases": What the project does (e.g., ["text generation", "image classification"])
5. "target_audience": Who would use this (e.g., ["ML researchers", "data scientists"])
6. "key_features": Notable features (max 3 items)

Return ONLY valid JSON with arrays for each field. If nothing found, use empty array [].
`

const discussionPromptTemplate = `Analyze this %s discussion about ML/AI and extract information.

Title: %s

Content: %s

Extract and return a JSON object with these fields:
1. "mentioned_tools": Tools/frameworks people are discussing (e.g., ["LangChain", "Ollama"])
2. "problems_discussed": Problems or challenges mentioned (e.g., ["GPU memory issues", "fine-tuning cost"])
3. "solutions_suggested": Solutions or approaches suggested (e.g., ["use quantization", "try LoRA"])
4. "trending_topics": Hot topics in this discussion (e.g., ["local LLMs", "open source models"])
5. "sentiment": Overall sentiment ("positive", "negative", "neutral", "mixed")

Return ONLY valid JSON with arrays for each field. If nothing found, use empty array [].
`

const jobPromptTemplate = `Analyze this ML/AI job posting and extract detailed requirements.

Job Title: %s
Company: %s
Description: %s

Extract and return a JSON object with these fields:
1. "required_skills": Must-have skills (e.g., ["Python", "PyTorch", "5+ years ML experience"])
2. "preferred_skills": Nice-to-have skills (e.g., ["AWS", "MLflow", "PhD"])
3. "tools": Specific tools mentioned (e.g., ["Docker", "Kubernetes", "Git"])
4. "role_type": Type of role (e.g., "ML Engineer", "Research Scientist", "Data Scientist")
5. "seniority": Level (e.g., "Senior", "Mid-level", "Junior", "Lead")
6. "focus_areas": Main focus (e.g., ["NLP", "Computer Vision", "MLOps"])

Return ONLY valid JSON with arrays for each field. If nothing found, use empty array [].
`

func paperPrompt(in PaperInput) string {
	return fmt.Sprintf(paperPromptTemplate, in.Title, in.Abstract)
}

func repoPrompt(in RepoInput) string {
	topics := "None"
	if len(in.Topics) > 0 {
		topics = strings.Join(in.Topics, ", ")
	}
	return fmt.Sprintf(repoPromptTemplate, in.Name, in.Description, topics)
}

func discussionPrompt(in DiscussionInput) string {
	source := in.Source
	if source == "" {
		source = defaultDiscussionSource
	}
	body := truncateRunes(PlainText(in.Content), discussionBodyLimit)
	return fmt.Sprintf(discussionPromptTemplate, source, in.Title, body)
}

func jobPrompt(in JobInput) string {
	description := truncateRunes(PlainText(in.Description), jobDescriptionLimit)
	return fmt.Sprintf(jobPromptTemplate, in.Title, in.Company, description)
}
