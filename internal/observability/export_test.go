package observability

// resetInstall undoes Init so install tests can run in any order
func resetInstall() {
	installMu.Lock()
	defer installMu.Unlock()
	if uninstall != nil {
		uninstall()
	}
	installed = nil
	uninstall = nil
}

func withLookupEnv(lookup func(string) (string, bool)) SubscriberOption {
	return func(o *subscriberOptions) {
		o.lookupEnv = lookup
	}
}

func noEnv(string) (string, bool) { return "", false }
