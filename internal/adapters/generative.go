package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/IvanKyuu/university-crawl/lib/llm"
)

const attributeSystemPrompt = `You are an Education developer in Canada aiming to help high school students to apply to universities. Now I will give
you any university_name, and the target_attribute for you to collect data from the internet, you are supposed to find the knowledge I am looking for and give me back an asserted output.
If you have checked any websites during your data collection procedure, you should return a List[str], which is a list of references that you have checked.
Think through the procedure deeply and take it step by step.
IMPORTANT: You don't need to explain your result, just produce the json as expected, following the exact format.
If you don't know or you are not sure, just return "not available" without further explaining
When you have provided with an official website of the target university, you should value the official website heavily, and check it first.
%s
%s
Those are a list of website that you may consider checking against during the data collection.

1. ## Input
    university_name: University of British Columbia
    target_attribute: description
    {"output": "The University of British Columbia (UBC), located in British Columbia, Canada, is a public university and a member of the U15 Group of Canadian Research Universities, the Association of Commonwealth Universities, the Association of Pacific Rim Universities, and Universitas 21. As of now, UBC has produced a total of 8 Nobel Prize laureates.", "reference": ["https://en.wikipedia.org/wiki/University_of_British_Columbia"]}
2. ## Input
    university_name: University of British Columbia
    target_attribute: graduation_year
    {"output": "4", "reference": ["https://you.ubc.ca/applying-ubc/requirements/"]}

Here I will present you with more examples, in the format of <university_name>, <target_attribute>, <output>
%s
Note you are still supposed to output as the output Format.

When you are using a quotation, always use double quotation, and NEVER use single quotation.
Your result should always be directly parsable as json, in the format of
output: %s,
reference: List[str], which is a list of references that you have checked.`

const basicInfoSystemPrompt = `# Instruction
You are an Education developer in Canada aiming to help high school students to apply to universities. Now I will give
you any university name, an abbreviation, an official website or a wikipedia website that links to the university. You are supposed to give me back
a JSON filled with fields <university_name>, <abbreviation>, <website>, and <wikipedia>.
When you are using a quotation, always use double quotation, and NEVER use single quotation.
Your result should always be directly parsable as json.`

const basicInfoExample = `{"university_name":"The University of British Columbia","abbreviation":"UBC","website":"https://www.ubc.ca","wikipedia":"https://en.wikipedia.org/wiki/University_of_British_Columbia"}`

// Generative asks a model directly, without search context.
type Generative struct {
	provider llm.Provider
}

func NewGenerative(provider llm.Provider) Generative {
	return Generative{provider: provider}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

type generatedAnswer struct {
	Output    any             `json:"output"`
	Reference json.RawMessage `json:"reference"`
}

// ParseAnswer reads a {"output": ..., "reference": [...]} reply. A reply of
// digits alone is taken as the value with no evidence.
func ParseAnswer(reply string) (Answer, error) {
	text := llm.TrimFence(reply)
	if isDigits(text) {
		return Answer{Value: text, Evidence: []string{}}, nil
	}

	var generated generatedAnswer
	if err := json.Unmarshal([]byte(text), &generated); err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if generated.Output == nil {
		return Answer{}, fmt.Errorf("%w: no output field", ErrMalformedResponse)
	}

	evidence := []string{}
	if len(generated.Reference) > 0 && string(generated.Reference) != "null" {
		var list []string
		var single string
		switch {
		case json.Unmarshal(generated.Reference, &list) == nil:
			evidence = list
		case json.Unmarshal(generated.Reference, &single) == nil:
			if single != "" {
				evidence = []string{single}
			}
		default:
			return Answer{}, fmt.Errorf("%w: reference is not a list of strings", ErrMalformedResponse)
		}
	}

	value := generated.Output
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	return Answer{Value: value, Evidence: evidence}, nil
}

func (g Generative) Generate(ctx context.Context, q Query) (Answer, error) {
	ctx, span := tracer.Start(ctx, "Generative.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("entity", q.Entity),
		attribute.String("attribute", q.Attribute),
		attribute.String("provider", g.provider.Name()),
	)

	references := "[]"
	if len(q.References) > 0 {
		encoded, _ := json.Marshal(q.References)
		references = string(encoded)
	}
	format := q.Format
	if format == "" {
		format = "str"
	}

	reply, err := g.provider.Complete(ctx, llm.Request{
		System: fmt.Sprintf(attributeSystemPrompt, q.Prompt, references, q.Example, format),
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("university_name: %s\ntarget_attribute: %s", q.Entity, q.Attribute),
		}},
		JSON: true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return Answer{}, err
	}

	answer, err := ParseAnswer(reply)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed answer")
		return Answer{}, err
	}
	return answer, nil
}

// BasicInfo resolves any name, abbreviation or link of a university to its
// canonical name, abbreviation, website and wikipedia page.
func (g Generative) BasicInfo(ctx context.Context, name string) (BasicInfo, error) {
	ctx, span := tracer.Start(ctx, "Generative.BasicInfo")
	defer span.End()
	span.SetAttributes(attribute.String("name", name))

	reply, err := g.provider.Complete(ctx, llm.Request{
		System: basicInfoSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "UBC"},
			{Role: llm.RoleAssistant, Content: basicInfoExample},
			{Role: llm.RoleUser, Content: name},
		},
		MaxTokens: 256,
		JSON:      true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return BasicInfo{}, err
	}

	var info BasicInfo
	if err := json.Unmarshal([]byte(llm.TrimFence(reply)), &info); err != nil {
		err = fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed basic info")
		return BasicInfo{}, err
	}
	if strings.TrimSpace(info.UniversityName) == "" {
		err := fmt.Errorf("%w: basic info without university_name", ErrMalformedResponse)
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed basic info")
		return BasicInfo{}, err
	}
	return info, nil
}
