package kcffi

// Sonames tried in order when KYOTOCABINET_LIBRARY is not set.
var libraryNames = []string{"libkyotocabinet.so.16", "libkyotocabinet.so"}
