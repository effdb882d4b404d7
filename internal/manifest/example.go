package manifest

// Example is written by `dotvault config init` when no manifest exists.
const Example = `# dotvault item manifest.
#
# kind:      file | sshkey (sshkey stores the private key and its .pub together)
# required:  setup is incomplete while this item is missing locally
# sync:      included in bulk sync/push/pull (default true)
# backup:    copy the local file aside before a pull overwrites it
# protected: deletion needs --force and a typed confirmation
#            (items named SSH-*, AWS-*, Git-*, GPG-* are protected unless set to false)

location: dotfiles

items:
  - name: Git-Config
    path: ~/.gitconfig
    kind: file
    required: true
    backup: true

  - name: SSH-Personal
    path: ~/.ssh/id_ed25519
    kind: sshkey
    required: true
    backup: true

  - name: AWS-Credentials
    path: ~/.aws/credentials
    kind: file
    backup: true

  - name: Shell-Local
    path: $HOME/.zshrc.local
    kind: file
`
