package db

import "time"

// TranslationRequest records who asked for which translation and when.
type TranslationRequest struct {
	ID         int64     `json:"id"`
	IPAddress  string    `json:"ipAddress"`
	InputLang  string    `json:"inputLang"`
	InputText  string    `json:"inputText"`
	OutputLang string    `json:"outputLang"`
	DateTime   time.Time `json:"dateTime"`
}

// TranslatedText is one stored part of a request's translation.
// Ordinal is its position among the parts of the same request.
type TranslatedText struct {
	ID         int64  `json:"id"`
	RequestID  int64  `json:"requestId"`
	Ordinal    int    `json:"ordinal"`
	OutputText string `json:"outputText"`
}
