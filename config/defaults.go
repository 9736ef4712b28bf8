package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/hackmate",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Server: ServerConfig{
			Listen:          "127.0.0.1:8080",
			Database:        "hackmate.db",
			HistoryLimit:    20,
			TranscriptLimit: 100,
			RequestTimeout:  "2m",
		},
		Provider: ProviderConfig{
			Type:  "ollama",
			Model: "llama3.1:latest",
		},
		Search: SearchConfig{
			Backend: "none",
			MCPTool: "web_search",
		},
		Client: ClientConfig{
			ServerURL:      "http://127.0.0.1:8080",
			StepDelay:      "750ms",
			SecurityMethod: SecurityPlainText,
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# hackmate system configuration
# Location: ~/.config/hackmate/settings.toml
# This file uses TOML format: https://toml.io

# Directory holding the database, user config, credentials and logs
data_directory = "~/.local/share/hackmate"
`
}

func GenerateUserConfigTemplate() string {
	return `# hackmate user configuration
# Location: <data_directory>/config.toml

[server]
listen = "127.0.0.1:8080"
# Relative paths live inside the data directory
database = "hackmate.db"
# Conversation turns sent to the model with each request
history_limit = 20
# Transcript rows returned when a client reloads
transcript_limit = 100
request_timeout = "2m"

[provider]
# One of: openai, openrouter, anthropic, ollama, gemini
type = "ollama"
model = "llama3.1:latest"
# base_url = "http://localhost:11434"
# API keys are read from the credential store (provider_<type>) or the
# provider's usual environment variable.

[search]
# One of: none, searxng, mcp
backend = "none"
# searxng_url = "http://localhost:8888"
# mcp_command = "npx"
# mcp_args = ["-y", "some-search-mcp-server"]
mcp_tool = "web_search"

[client]
server_url = "http://127.0.0.1:8080"
# Pause between steps of a confirmed multi-step plan
step_delay = "750ms"
# plaintext or ssh_key
security_method = "plaintext"
# ssh_key_path = "~/.ssh/id_ed25519"
`
}
