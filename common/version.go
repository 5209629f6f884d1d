package common

const Version = "0.1.0"
