package kcffi

// Install names tried in order when KYOTOCABINET_LIBRARY is not set.
var libraryNames = []string{"libkyotocabinet.16.dylib", "libkyotocabinet.dylib"}
