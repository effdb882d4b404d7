package vault

// Action is what should happen to an item.
type Action string

const (
	ActionSkip     Action = "skip"
	ActionPush     Action = "push"
	ActionPull     Action = "pull"
	ActionConflict Action = "conflict"
)

// Force resolves conflicts in a fixed direction. It never changes a
// decision that is not a conflict.
type Force int

const (
	ForceNone Force = iota
	ForceLocal
	ForceVault
)

// Decision is an Action plus the reason shown to the user.
type Decision struct {
	Action Action
	Reason string
	// Forced is set when a conflict was resolved by a Force.
	Forced bool
}

// Decide applies the three-way comparison of local and remote content
// against the last synchronized baseline.
func Decide(local, remote, baseline Digest, force Force) Decision {
	if local == remote {
		switch {
		case local.Present():
			return Decision{Action: ActionSkip, Reason: "in sync"}
		case baseline.Present():
			return Decision{Action: ActionSkip, Reason: "deleted on both sides"}
		default:
			return Decision{Action: ActionSkip, Reason: "absent on both sides"}
		}
	}

	if !baseline.Present() {
		switch {
		case !remote.Present():
			return Decision{Action: ActionPush, Reason: "never synced, local only"}
		case !local.Present():
			return Decision{Action: ActionPull, Reason: "never synced, remote only"}
		default:
			return conflict("never synced and both sides differ", force)
		}
	}

	switch {
	case !local.Present():
		// Local deletions are never propagated to the remote.
		return Decision{Action: ActionPull, Reason: "local file missing, restoring"}
	case !remote.Present():
		return Decision{Action: ActionPush, Reason: "remote entry missing"}
	}

	localChanged := local != baseline
	remoteChanged := remote != baseline
	switch {
	case localChanged && remoteChanged:
		return conflict("both sides changed since last sync", force)
	case localChanged:
		return Decision{Action: ActionPush, Reason: "local is newer"}
	default:
		return Decision{Action: ActionPull, Reason: "remote is newer"}
	}
}

func conflict(reason string, force Force) Decision {
	switch force {
	case ForceLocal:
		return Decision{Action: ActionPush, Reason: reason + ", keeping local", Forced: true}
	case ForceVault:
		return Decision{Action: ActionPull, Reason: reason + ", keeping remote", Forced: true}
	default:
		return Decision{Action: ActionConflict, Reason: reason}
	}
}
