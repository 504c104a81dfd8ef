//go:build windows

package mapping

import (
	"github.com/NichUK/onedrive-versions/internal/logging"
	"github.com/NichUK/onedrive-versions/internal/pathutil"
	"golang.org/x/sys/windows/registry"
)

const accountsKeyPath = `Software\Microsoft\OneDrive\Accounts`

// fromRegistry enumerates the sync client's per-account registry entries.
// Each account contributes its mount folder plus URL metadata; each tenant
// subkey contributes one mount per synced library. Any failure yields an
// empty list so discovery never depends on registry health.
func fromRegistry() []Mapping {
	accounts, err := registry.OpenKey(registry.CURRENT_USER, accountsKeyPath, registry.READ)
	if err != nil {
		logging.Debug("registry accounts key unavailable", logging.Err(err))
		return nil
	}
	defer accounts.Close()

	names, err := accounts.ReadSubKeyNames(-1)
	if err != nil {
		return nil
	}

	var out []Mapping
	for _, name := range names {
		out = append(out, readAccount(accountsKeyPath+`\`+name)...)
	}

	return out
}

// readAccount reads one sync relationship: the account's own UserFolder
// and any SharePoint library mounts under its Tenants subkeys.
func readAccount(keyPath string) []Mapping {
	k, err := registry.OpenKey(registry.CURRENT_USER, keyPath, registry.READ)
	if err != nil {
		return nil
	}
	defer k.Close()

	namespace, _, _ := k.GetStringValue("UrlNamespace")

	var out []Mapping

	if folder, _, err := k.GetStringValue("UserFolder"); err == nil && folder != "" {
		out = append(out, Mapping{
			LocalRoot:    pathutil.Canonicalize(folder),
			URLNamespace: namespace,
			Source:       SourceRegistry,
		})
	}

	out = append(out, readTenants(keyPath+`\Tenants`, namespace)...)

	return out
}

// readTenants collects library mounts: each tenant subkey holds one value
// per synced library, the value name being the local mount path and the
// value data the remote library URL.
func readTenants(keyPath, namespace string) []Mapping {
	tenants, err := registry.OpenKey(registry.CURRENT_USER, keyPath, registry.READ)
	if err != nil {
		return nil
	}
	defer tenants.Close()

	names, err := tenants.ReadSubKeyNames(-1)
	if err != nil {
		return nil
	}

	var out []Mapping
	for _, tenant := range names {
		tk, err := registry.OpenKey(registry.CURRENT_USER, keyPath+`\`+tenant, registry.READ)
		if err != nil {
			continue
		}

		values, err := tk.ReadValueNames(-1)
		if err != nil {
			tk.Close()
			continue
		}

		for _, mount := range values {
			if mount == "" {
				continue
			}
			remote, _, _ := tk.GetStringValue(mount)
			out = append(out, Mapping{
				LocalRoot:      pathutil.Canonicalize(mount),
				URLNamespace:   namespace,
				FullRemotePath: remote,
				Source:         SourceRegistry,
			})
		}

		tk.Close()
	}

	return out
}
