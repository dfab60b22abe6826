package llm

// TaskType identifies the type of LLM task.
type TaskType string

// Task type constants.
const (
	TaskTypeClassify   TaskType = "classify"
	TaskTypeSynthesize TaskType = "synthesize"
)

// ProviderModel specifies a provider and model combination.
type ProviderModel struct {
	Provider ProviderName
	Model    string
}

// TaskProviderChain defines the provider/model fallback chain for a task.
type TaskProviderChain struct {
	Default   ProviderModel
	Fallbacks []ProviderModel
}

// DefaultTaskConfig returns the provider chains used when nothing is overridden.
func DefaultTaskConfig() map[TaskType]TaskProviderChain {
	return map[TaskType]TaskProviderChain{
		// Classify: Google → OpenAI
		TaskTypeClassify: {
			Default: ProviderModel{Provider: ProviderGoogle, Model: ModelGeminiFlash},
			Fallbacks: []ProviderModel{
				{Provider: ProviderOpenAI, Model: ModelGPT4oMini},
			},
		},

		// Synthesize: Anthropic → OpenAI
		TaskTypeSynthesize: {
			Default: ProviderModel{Provider: ProviderAnthropic, Model: ModelClaudeSonnet},
			Fallbacks: []ProviderModel{
				{Provider: ProviderOpenAI, Model: ModelGPT4o},
			},
		},
	}
}

// TaskConfigFromModels builds the chains from configured model names.
// Empty names keep the defaults.
func TaskConfigFromModels(classify, classifyFallback, synth, synthFallback string) map[TaskType]TaskProviderChain {
	cfg := DefaultTaskConfig()

	setModel := func(task TaskType, primary, fallback string) {
		chain := cfg[task]

		if primary != "" {
			chain.Default.Model = primary
		}

		if fallback != "" && len(chain.Fallbacks) > 0 {
			chain.Fallbacks[0].Model = fallback
		}

		cfg[task] = chain
	}

	setModel(TaskTypeClassify, classify, classifyFallback)
	setModel(TaskTypeSynthesize, synth, synthFallback)

	return cfg
}

// GetProviderChain returns the ordered list of provider/model combinations for a task.
func (tc TaskProviderChain) GetProviderChain() []ProviderModel {
	chain := make([]ProviderModel, 0, 1+len(tc.Fallbacks))
	chain = append(chain, tc.Default)
	chain = append(chain, tc.Fallbacks...)

	return chain
}
