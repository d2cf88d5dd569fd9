// Package protocol defines the JSON message vocabulary spoken between an
// interview client and the gateway over a single WebSocket connection.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

func unsupported(message, param string) *DecodeError {
	return &DecodeError{Code: "unsupported", Message: message, Param: param}
}

// ClientAudio carries one base64-encoded chunk of candidate microphone PCM.
type ClientAudio struct {
	Type     string `json:"type"`
	DataB64  string `json:"data"`
	MIMEType string `json:"mime_type,omitempty"`
}

// ClientImage carries one base64-encoded webcam frame.
type ClientImage struct {
	Type     string `json:"type"`
	DataB64  string `json:"data"`
	MIMEType string `json:"mime_type,omitempty"`
}

type ClientText struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	TurnComplete *bool  `json:"turn_complete,omitempty"`
}

// ClientContext hot-swaps the job description and resume text used for the
// remainder of the conversation.
type ClientContext struct {
	Type               string `json:"type"`
	JobDescriptionText string `json:"jobDescriptionText,omitempty"`
	ResumeText         string `json:"resumeText,omitempty"`
}

type ClientControl struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

const ControlActionStop = "stop"

// DecodeClientMessage parses one inbound frame into its typed form.
// Unknown or malformed frames yield a *DecodeError; callers are expected to
// log and drop, never to tear the session down.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case "audio":
		var msg ClientAudio
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid audio frame", "")
		}
		if strings.TrimSpace(msg.DataB64) == "" {
			return nil, badRequest("audio.data is required", "data")
		}
		if strings.TrimSpace(msg.MIMEType) == "" {
			msg.MIMEType = "audio/pcm"
		}
		return msg, nil
	case "image":
		var msg ClientImage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid image frame", "")
		}
		if strings.TrimSpace(msg.DataB64) == "" {
			return nil, badRequest("image.data is required", "data")
		}
		if strings.TrimSpace(msg.MIMEType) == "" {
			msg.MIMEType = "image/jpeg"
		}
		return msg, nil
	case "text":
		var msg ClientText
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid text frame", "")
		}
		return msg, nil
	case "context":
		var msg ClientContext
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid context frame", "")
		}
		return msg, nil
	case "control":
		var msg ClientControl
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid control frame", "")
		}
		action := strings.TrimSpace(msg.Action)
		if action == "" {
			return nil, badRequest("control.action is required", "action")
		}
		if action != ControlActionStop {
			return nil, unsupported("unsupported control action", "action")
		}
		msg.Action = action
		return msg, nil
	default:
		return nil, badRequest("unsupported message type", "type")
	}
}

// ServerStatus announces session readiness, including the PCM sample rates
// for both directions and the current resumption handle (if any).
type ServerStatus struct {
	Type              string `json:"type"`
	Status            string `json:"status"`
	SendSampleRate    int    `json:"sendSampleRate"`
	ReceiveSampleRate int    `json:"receiveSampleRate"`
	ResumeHandle      string `json:"resumeHandle,omitempty"`
}

type ServerAudio struct {
	Type       string `json:"type"`
	DataB64    string `json:"data"`
	SampleRate int    `json:"sampleRate"`
}

type ServerText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ServerTranscript struct {
	Type    string         `json:"type"`
	Role    string         `json:"role"`
	Payload map[string]any `json:"payload"`
}

type ServerMonitor struct {
	Type      string `json:"type"`
	Event     string `json:"event"`
	Warnings  int    `json:"warnings"`
	Remaining int    `json:"remaining,omitempty"`
}

const (
	MonitorEventWarning    = "look_away_warning"
	MonitorEventTerminated = "look_away_terminated"
)

type ServerSessionResumption struct {
	Type   string `json:"type"`
	Handle string `json:"handle"`
}

type ServerSessionComplete struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// ServerRecordings reports the durable artifacts produced at finalization.
// Absent paths mean that artifact was not produced; partial sets are valid.
type ServerRecordings struct {
	Type            string `json:"type"`
	SessionID       string `json:"sessionId"`
	AssistantPath   string `json:"assistantPath,omitempty"`
	CandidatePath   string `json:"candidatePath,omitempty"`
	MixPath         string `json:"mixPath,omitempty"`
	TranscriptsPath string `json:"transcriptsPath,omitempty"`
	FormattedPath   string `json:"formattedPath,omitempty"`
	ScorePath       string `json:"scorePath,omitempty"`
}

type ServerError struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ServerNotice carries an operator message, e.g. a shutdown announcement.
type ServerNotice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ServerSessionExpired struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ServerContextAck struct {
	Type    string   `json:"type"`
	Updated []string `json:"updated"`
}
