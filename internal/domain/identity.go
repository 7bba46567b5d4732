package domain

// Identity es un conjunto de headers con el que se hace una petición a la fuente.
// El Retrier rota entre varias para que un solo User-Agent bloqueado no tumbe el poll.
type Identity struct {
	Name    string
	Headers map[string]string
}

// DefaultIdentities devuelve el pool por defecto: dos navegadores distintos.
func DefaultIdentities() []Identity {
	return []Identity{
		{
			Name: "chrome-mac",
			Headers: map[string]string{
				"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Accept-Language": "en-US,en;q=0.9",
			},
		},
		{
			Name: "firefox-linux",
			Headers: map[string]string{
				"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
				"Accept-Language": "en-GB,en;q=0.8",
			},
		},
	}
}
