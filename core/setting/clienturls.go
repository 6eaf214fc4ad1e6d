package setting

import "context"

// ClientURL is the resolved state of one configured client-side URL.
// When not configured, Hint carries the remediation text shown to admins.
type ClientURL struct {
	Key        string `json:"key"`
	Configured bool   `json:"configured"`
	URL        string `json:"url,omitempty"`
	Hint       string `json:"hint,omitempty"`
}

var clientURLHints = map[string]string{
	KeyAceEditorURL: "The code editor is unavailable. Set the configuration value " +
		KeyAceEditorURL + " to the base URL of an Ace editor distribution.",
	KeyMathJaxURL: "Formula rendering is unavailable. Set the configuration value " +
		KeyMathJaxURL + " to the base URL of a MathJax distribution.",
}

// ClientURLs resolves all configured client URLs in one pass over the store.
func (svc *Service) ClientURLs(ctx context.Context) ([]ClientURL, error) {
	urls := make([]ClientURL, 0, len(clientURLHints))
	for _, key := range []string{KeyAceEditorURL, KeyMathJaxURL} {
		val, ok, err := svc.GetSingleValue(ctx, key)
		if err != nil {
			return nil, err
		}
		cu := ClientURL{Key: key, Configured: ok}
		if ok {
			cu.URL = val
		} else {
			cu.Hint = clientURLHints[key]
		}
		urls = append(urls, cu)
	}
	return urls, nil
}
