package services

// Prompt and sentinel text sent to, or shown in place of, the generative model.

const (
	// INCIDENT_ANALYSIS_PROMPT wraps the detector output for the text model.
	// Arguments: newline-joined anomalies, raw log excerpt.
	INCIDENT_ANALYSIS_PROMPT = `As a BSSN cyber security expert, you are asked to analyze the following cyber incident...
Incident Details:
Anomalies Found:
%s

Raw Log Excerpt: %s`

	// IMAGE_ANALYSIS_PROMPT is sent alongside a screenshot to the vision model.
	IMAGE_ANALYSIS_PROMPT = `You are a senior cyber security analyst at BSSN. Analyze the following image as evidence of a cyber incident...`

	// KNOWLEDGE_PREAMBLE opens a prompt that carries knowledge-base examples.
	KNOWLEDGE_PREAMBLE = `You are a BSSN cyber security expert. Use the following example cases from the knowledge base as the primary reference for the style, format, and depth of your analysis.`

	// KNOWLEDGE_EXAMPLE_TEMPLATE renders one example. Arguments: input, output.
	KNOWLEDGE_EXAMPLE_TEMPLATE = `EXAMPLE CASE:
- Input Anomaly: "%s"
- Ideal Analysis Output: "%s"`

	// NEW_INCIDENT_HEADING separates the examples from the incident to analyze.
	NEW_INCIDENT_HEADING = `Now, provide an analysis for the following NEW incident:`

	KNOWLEDGE_DELIMITER = "---"
)

// Summary markers. The header takes the true anomaly count; the tail marker
// both flags the cut and opens the final sample.
const (
	SUMMARY_HEADER_FORMAT = "[SUMMARY] A total of %d anomalies were detected by the ML model. Here is a sample:"
	SUMMARY_HEAD_MARKER   = "--- INITIAL ANOMALY SAMPLE ---"
	SUMMARY_TAIL_MARKER   = "--- ( ... data truncated ... ) --- FINAL ANOMALY SAMPLE ---"
)

// Sentinels placed in the result when a stage could not produce real content.
const (
	EMPTY_INPUT_SENTINEL          = "Empty log input."
	DETECTOR_UNREACHABLE_SENTINEL = "CRITICAL: Failed to reach the anomaly detection service."

	TEXT_MODEL_EMPTY_RESPONSE   = "Failed to get a valid response from ModelArk."
	VISION_MODEL_EMPTY_RESPONSE = "Failed to get a valid response from the vision model."
	TEXT_MODEL_ERROR_FORMAT     = "An error occurred while calling the ModelArk text API: %s"
	VISION_MODEL_ERROR_FORMAT   = "An error occurred while calling the ModelArk vision API: %s"
)
