// Package prompts builds the system instructions sent with every session
// configuration.
package prompts

import (
	"fmt"
	"slices"
	"strings"
)

type Profile string

const (
	ProfileInterview    Profile = "interview"
	ProfileSales        Profile = "sales"
	ProfileMeeting      Profile = "meeting"
	ProfilePresentation Profile = "presentation"
	ProfileNegotiation  Profile = "negotiation"
	ProfileExam         Profile = "exam"

	DefaultProfile = ProfileInterview
)

type profilePrompt struct {
	intro   string
	format  string
	content string
}

var profilePrompts = map[Profile]profilePrompt{
	ProfileInterview: {
		intro:   "You are an AI-powered interview assistant, helping the user answer questions during a live job interview.",
		format:  "Keep answers short and conversational, one to three sentences unless the question asks for detail. Use **bold** for key points and bullet points for lists.",
		content: "If the interviewer asks about experience or skills, answer as the candidate would, drawing on the context provided by the user. For technical questions give a direct answer first, then a brief explanation.",
	},
	ProfileSales: {
		intro:   "You are a sales call assistant, helping the user respond to a prospect in real time.",
		format:  "Reply with ready-to-say lines, short and confident. Use **bold** for the value proposition.",
		content: "Handle objections by acknowledging them, reframing around value and proposing a next step. Never invent pricing or product capabilities that were not provided.",
	},
	ProfileMeeting: {
		intro:   "You are a meeting assistant, helping the user contribute clearly to an ongoing meeting.",
		format:  "Keep responses brief and actionable. Use bullet points for action items and decisions.",
		content: "Suggest what to say next, summarize decisions when asked and point out open questions or owners that were not assigned.",
	},
	ProfilePresentation: {
		intro:   "You are a presentation coach, helping the user answer audience questions during a live presentation.",
		format:  "Give answers that can be spoken in under thirty seconds. Use **bold** for the main message.",
		content: "Tie answers back to the key points of the presentation and suggest a smooth transition back to the talk.",
	},
	ProfileNegotiation: {
		intro:   "You are a negotiation assistant, helping the user respond during a live negotiation.",
		format:  "Reply with short, calm lines the user can say directly. Use **bold** for the proposed terms.",
		content: "Protect the user's interests, look for trade-offs rather than concessions and flag pressure tactics when you notice them.",
	},
	ProfileExam: {
		intro:   "You are an exam assistant, helping the user work through questions accurately.",
		format:  "Lead with the answer, then give a concise justification. Use code blocks for code.",
		content: "For multiple choice questions state the correct option first. Show the key steps for problems that require calculation.",
	},
}

// Profiles lists the known profiles in a stable order.
func Profiles() []Profile {
	profiles := make([]Profile, 0, len(profilePrompts))
	for profile := range profilePrompts {
		profiles = append(profiles, profile)
	}
	slices.Sort(profiles)
	return profiles
}

func (p Profile) Valid() bool {
	_, ok := profilePrompts[p]
	return ok
}

// ParseProfile parses a profile name, an empty name selects the default.
func ParseProfile(name string) (Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultProfile, nil
	}
	if profile := Profile(name); profile.Valid() {
		return profile, nil
	}
	return "", fmt.Errorf("unknown prompt profile %q", name)
}

// SystemPrompt builds the instructions for profile, falling back to the
// default profile when it is unknown. Custom instructions from the user are
// appended as additional context.
func SystemPrompt(profile Profile, customInstructions, language string) string {
	prompt, ok := profilePrompts[profile]
	if !ok {
		prompt = profilePrompts[DefaultProfile]
	}

	var sb strings.Builder
	sb.WriteString(prompt.intro)
	sb.WriteString("\n\n**RESPONSE FORMAT:**\n")
	sb.WriteString(prompt.format)
	sb.WriteString("\n\n**GUIDELINES:**\n")
	sb.WriteString(prompt.content)
	sb.WriteString("\n\nOnly respond to the most recent question or statement. " +
		"If what you heard is not a question or does not need a reply, respond with a short acknowledgement.")

	if language = strings.TrimSpace(language); language != "" {
		fmt.Fprintf(&sb, "\n\nRespond in the language identified by %q unless asked otherwise.", language)
	}

	if customInstructions = strings.TrimSpace(customInstructions); customInstructions != "" {
		sb.WriteString("\n\n**USER-PROVIDED CONTEXT:**\n")
		sb.WriteString(customInstructions)
	}

	return sb.String()
}
