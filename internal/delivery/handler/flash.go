package handler

import (
	"net/http"
)

const (
	flashCookie      = "flash"
	actionSuccessful = "action_successful"
)

var flashMessages = map[string]string{
	actionSuccessful: "Action completed successfully.",
}

// setFlash stores a one-shot notice that the next list render shows and clears.
func setFlash(w http.ResponseWriter, kind string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    kind,
		Path:     ListPath,
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     ListPath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return flashMessages[c.Value]
}
